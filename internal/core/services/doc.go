// Package services implements the driving port interfaces.
// Services contain the annotation pipeline and the fal query, and
// orchestrate calls to driven ports (adapters).
//
// Each stage reads one record file and appends to the next; a unit already
// present in the output is skipped, so every stage can be rerun after a crash.
package services
