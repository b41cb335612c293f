// Package shared holds code used across packages that belongs to no single
// layer. Its testutil subpackage provides the log-capturing handler and
// recording fixtures used by the package tests.
package shared
