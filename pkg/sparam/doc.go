// Package sparam holds sampled scattering parameters over a wavelength
// grid and moves them in and out of CSV and Touchstone files.
//
// A Matrix is keyed by PortPair: S[out,in] is the wave leaving port out
// when port in is driven. Series accessors return magnitude, dB magnitude
// and phase; At interpolates every stored entry to a single wavelength.
// CheckReciprocal and CheckPassive validate physicality within tolerances.
package sparam
