// Package peres reads and writes the resource directory of PE images
// (executables, libraries and controls) without loading them for execution.
//
// The root package holds the shared resource identifier model, the error
// taxonomy and the resource reader. The writer lives in package embedding.
//
// Reading the embedded manifest of a COM server:
//
//	data, found, err := peres.ReadManifest("server.dll", nil)
//	if err != nil {
//		return err
//	}
//	if !found {
//		// no manifest resource, not an error
//	}
package peres
