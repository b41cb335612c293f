// Package files provides the file system plumbing shared by the loaders
// and the result writers.
//
// Manager resolves paths against the configured directories and writes
// files atomically (temporary file in the target directory, then rename),
// so an interrupted run never leaves a truncated result bundle behind.
//
// Discovery finds recordings in the data directory and completed result
// bundles under a results root.
//
//	manager := files.NewManager(paths)
//	err := manager.WriteAtomic("results/0/00000001_phi.npz", func(w io.Writer) error {
//	    return bundle.Encode(w)
//	})
package files
