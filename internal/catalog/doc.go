// Package catalog keeps the track listing of the playlist being browsed.
package catalog
