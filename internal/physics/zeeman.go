package physics

// Physical constants of the Zeeman conversion.
const (
	// ZeemanSplittingHzPerMicroGauss is the 21-cm Zeeman splitting coefficient.
	ZeemanSplittingHzPerMicroGauss = 2.8

	// SpeedOfLightKms is the speed of light in km s-1.
	SpeedOfLightKms = 299792.458

	// HIRestFrequencyHz is the rest frequency of the 21-cm hyperfine line.
	HIRestFrequencyHz = 1420.4058e6

	// ZeemanKmsPerMicroGauss converts a line-of-sight field in uG into the
	// velocity separation (km s-1) between the two circular polarizations:
	// dv = dnu * c / nu0. Evaluated exactly at compile time.
	ZeemanKmsPerMicroGauss = ZeemanSplittingHzPerMicroGauss * SpeedOfLightKms / HIRestFrequencyHz
)

// ZeemanShift returns the centroid offset of each circular polarization for a
// field of bparallel uG. LCP is shifted by +shift and RCP by -shift.
func ZeemanShift(bparallel float64) float64 {
	return ZeemanKmsPerMicroGauss * bparallel / 2.0
}
