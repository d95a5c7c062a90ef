// Package preflight provides readiness checks for filesystem paths,
// external binaries, and the camera device that lapsecam depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup so path and permission problems
//     surface before the first detection session begins.
//   - The CLI "lapsecam status" command uses the individual check
//     functions to display environment health.
package preflight
