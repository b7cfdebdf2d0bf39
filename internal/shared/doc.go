// Package shared provides common utilities and test helpers used across the
// adcpview codebase.
//
// # Structure
//
//   - testutil: slog capture handlers and NetCDF fixture writers
//
// # Test Utilities
//
// The testutil subpackage writes real survey and bathymetry files with the
// pure-Go NetCDF writer, so readers are exercised against the same layout the
// instrument archive uses:
//
//	func TestSomething(t *testing.T) {
//	    dir := t.TempDir()
//	    path := testutil.WriteSurveyNC(t, dir, "survey.nc", testutil.DefaultSurvey())
//	    // open path with archive.Store
//	}
package shared
