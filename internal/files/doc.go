// Package files provides file system operations and discovery utilities
// for the ADCP viewer.
//
// Discovery finds survey files (*.nc) in the instrument archive and catalog
// tables next to it. Manager writes into the configured layout; its atomic
// writes back the transformed-output sink and report generation.
//
// Example usage:
//
//	discovery := files.NewDiscovery(paths.DataDir)
//	surveys, err := discovery.FindSurveyFiles("archive")
//
//	manager := files.NewManager(paths)
//	full, err := manager.WriteFileAtomic("reports/survey.pdf", pdf)
package files
