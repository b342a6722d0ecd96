// Package dedupe guards the public registration endpoint against double
// submission: a family pressing submit twice, or a browser retrying a slow
// post, must not create two households with two edit codes.
package dedupe
