// Package persist provides a persistence host that runs state transforms around a storage.
//
// A Persistor encodes each reducer's state with a Codec and stores it under a prefixed key.
// On the way to the storage, the In functions of the transforms whitelisting the reducer
// key are applied in the declared order. On the way back, the Out functions are applied
// in the reverse order, so the transform declared first sees the rehydrated state last.
//
//	state -> In(t1) -> In(t2) -> Encode -> Storage -> Decode -> Out(t2) -> Out(t1) -> state
package persist
