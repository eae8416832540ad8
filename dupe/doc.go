// Package dupe implements the AdvDupe2 duplication file format.
//
// A duplication file has three parts:
//
//	AD2F <version> \n                  signature, one version byte, line ending
//	key \x01 value \x01 ... \x02 \n    info block
//	<lzma stream>                      data block: one encoded lua.Value
//
// The data block is a classic LZMA stream (13 byte header) whose plain text
// is a depth-first, tagged encoding of a single value tree. Each node starts
// with a type tag:
//
//	255 table    key/value pairs, closed by 246
//	254 array    values, closed by 246
//	253 true
//	252 false
//	251 double   8 bytes, little endian IEEE-754
//	250 vector   three doubles
//	249 angle    three doubles
//	248 string   uint32 little endian length, then bytes
//	0..245       string whose length is the tag itself
//
// A key appears at most once per table, and nothing follows the root value.
// The info block's size field may not exceed the decoder's payload limit.
//
// Decode reads the signature and version byte, picks the Codec registered
// for that version and hands it the rest of the stream. Only version 5 is
// implemented. Header problems are reported as ErrInvalidHeader, versions
// without a codec as *UnsupportedCodecError, and every problem found in the
// info or data block as a *DecodeError matching ErrMalformed. A Document is
// only returned once the whole stream decoded cleanly.
//
// EncodeValue and DecodeValue expose the tagged value encoding on its own,
// without info block or compression.
package dupe
