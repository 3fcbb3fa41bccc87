// Package kv implements the embedded key-value backend family (scheme "kv").
//
// Every object, container edge, type tag, type registration and slot is one
// entry in a flat, byte-ordered key space; multi-valued slots are emulated by
// one of the mapping encodings (maps, lists or indices). Two substrates carry
// the key space: an in-memory map for transient backends and a single SQLite
// table for persistent ones.
//
// Key layout (one kind byte, then NUL-separated parts):
//
//	o <id>                         object exists
//	c <id>                         container descriptor
//	m <id>                         class key of the object's type
//	k <name@uri>                   registered class descriptor
//	i <name@uri> 0 <id>            instance index entry
//	f <id> 0 <feature>             slot (value, map, list or size)
//	p <id> 0 <feature> 0 <pos>     element (indices encoding), pos big-endian
package kv
