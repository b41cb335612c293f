// Package dataio loads binarized recordings into a Dataset.
//
// Supported inputs are NumPy .npy files, .npz archives and plain CSV.
// NumPy arrays are laid out as (channels, samples), (channels, samples,
// trials) or (channels, samples, trials, conditions). CSV files hold one
// sample per row and one channel per column and always form a single
// trial of a single condition.
//
//	ds, err := dataio.Load("data/session1.npz", "spikes")
//	trials, err := ds.Select([]int{0, 3, 7}, 0)
package dataio
