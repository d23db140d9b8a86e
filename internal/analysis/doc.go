// Package analysis computes offline position statistics from a capture
// log.
//
// Positions come from the voltage-ratio transform
//
//	pos_mm = 10 * (v - 5) / (2 * v_sum)
//
// applied to inputVoltageX/Y; the reference center is the mean of the same
// transform applied to LevelX/Y.
package analysis
