// Package main is the respkv-cli entry point.
//
// Usage:
//
//	respkv-cli                      interactive mode
//	respkv-cli set --ex 10s k v     one command
//	respkv-cli -o json get k
//	respkv-cli raw SET k v NX
//	respkv-cli -s /run/respkv/respkv.sock dbsize
//	respkv-cli --tls --cacert ca.pem -a db.internal:6379 ping
package main
