// Package output renders server replies for respkv-cli.
//
// Text output follows redis-cli conventions: OK, (nil), (integer) 3,
// quoted bulk strings with escapes, (error) ERR ..., and numbered arrays
// indented by nesting depth. JSON output maps every reply to a plain
// value so scripts can consume it.
package output
