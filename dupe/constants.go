package dupe

import "encoding/binary"

// Signature opens every duplication file.
const Signature = "AD2F"

// Version5 is the codec revision written by current AdvDupe2 releases.
const Version5 uint8 = 5

// Info block framing.
const (
	LineEnding    byte = '\n'
	InfoSeparator byte = 0x01
	InfoEnd       byte = 0x02

	// CheckValue is stored under the "check" key. Editors that convert line
	// endings corrupt it, which is how such files are detected.
	CheckValue = "\r\n\t\n"
)

// Well-known info keys.
const (
	KeyName     = "name"
	KeyDate     = "date"
	KeyTime     = "time"
	KeyTimeZone = "timezone"
	KeySize     = "size"
	KeyCheck    = "check"
)

// Type tags of the version 5 value encoding.
const (
	TagTable      byte = 255
	TagArray      byte = 254
	TagTrue       byte = 253
	TagFalse      byte = 252
	TagDouble     byte = 251
	TagVector     byte = 250
	TagAngle      byte = 249
	TagLongString byte = 248
	TagReference  byte = 247 // back reference to an earlier table, not supported
	TagEnd        byte = 246

	// MaxShortString is the longest string whose length fits in the tag.
	MaxShortString = int(TagEnd) - 1
)

// Default limits.
const (
	DefaultMaxPayload = 64 * 1024 * 1024
	DefaultMaxDepth   = 512
	DefaultMaxInfo    = 64 * 1024
	DefaultDictCap    = 8 * 1024 * 1024
)

var byteOrder = binary.LittleEndian
