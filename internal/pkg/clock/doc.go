// Package clock supplies the current time to code that derives values from it,
// such as OTP time windows. Fixed lets tests pin and move that time.
package clock
