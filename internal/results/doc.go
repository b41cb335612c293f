// Package results persists per-channel-set outputs and batch summaries.
//
// Every channel set produces one compressed .npz bundle holding the phi
// value, minimum information partition and observed count of every state
// for each condition, the TPM of each condition and a meta.json member
// describing how the bundle was produced. Bundles are sharded into
// numbered directories so no directory holds more than MaxFilesPerDir
// files:
//
//	<root>/<id / MaxFilesPerDir>/<id, 8 digits><suffix>_phi.npz
//
// SummaryWriter collects one row per channel set and condition into a CSV
// file and, optionally, an Excel workbook.
package results
