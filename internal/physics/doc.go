// Package physics provides the closed-form pieces of the 21-cm Zeeman
// absorption model.
//
//   - [ZeemanKmsPerMicroGauss]: velocity splitting per unit line-of-sight field
//   - [Gaussian] and [LineProfile]: peak-normalized Gaussian line shapes,
//     broadcast over the cloud axis
//   - log densities of the standardized prior families and the Normal
//     observation model
//
// Everything here is a pure function of its arguments.
package physics
