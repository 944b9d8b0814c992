/*
Package dbvalue implements the tagged value union of spec §4.9: a
closed set of nine variants (Bytes, I64, U64, F64, String, and their Vec
counterparts) that round-trips through a 17-byte descriptor
`[tag: 1][payload_or_index: 16]`.

Scalars (I64/U64/F64) and short Bytes/String values (under 15 bytes)
store their payload inline in those 16 bytes; longer Bytes/String values
and every Vec variant instead store an 8-byte storage index there and
keep their actual payload in its own record. container.StringCodec,
by contrast, outlines every string into its own record whatever its
length.

Value carries no interface or reflection: it is a flat struct with one
field per variant and a tag discriminating which is live, the idiomatic
Go rendering of the original's enum. Conversions between numeric
variants and total ordering across the whole type follow the rules
spec §4.9 states directly.
*/
package dbvalue
