// Package metadata builds the descriptive record of a raw survey file: the
// ship, the survey period, instrument settings copied from the global
// attributes and the links back to the SeaDataNet catalogue.
//
// Extract never modifies the dataset and has no side effects. Attributes a
// file does not carry are reported as null.
package metadata
