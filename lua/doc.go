// Package lua implements the value model stored in AdvDupe2 duplications.
//
// A duplication holds a single tree of Lua-like values. The set of kinds is
// closed:
//
//	table   associative collection, any value may be a key
//	array   ordered sequence
//	string  UTF-8 text
//	double  IEEE-754 binary64
//	vector  three doubles (x, y, z)
//	angle   three doubles (pitch, yaw, roll)
//	bool    true or false
//
// Values form a strict tree: every nested value is owned by exactly one
// parent and there are no cross references. Tables keep insertion order so
// that a decode/encode pass reproduces the same byte layout, but the order
// carries no meaning for equality.
//
// # Narrowing
//
// Accessors never fail. AsTable, AsArray, AsString and friends return the
// payload together with an ok flag that is false when the active kind does
// not match:
//
//	if t, ok := v.AsTable(); ok {
//	    ents := t.Get(lua.String("Entities"))
//	    ...
//	}
//
// # Equality
//
// Equal is structural. Tables compare as unordered sets of entries, arrays
// compare element by element. Hash agrees with Equal, so values can be used
// as table keys regardless of kind.
package lua
