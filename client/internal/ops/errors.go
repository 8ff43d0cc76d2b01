package ops

import "errors"

// ErrCryptoFailure covers every client-side cryptographic failure: a
// signature that does not verify, a decryption that fails, or metadata
// JSON missing a required field. No plaintext is written to disk when an
// operation returns this error.
var ErrCryptoFailure = errors.New("ops: cryptographic verification failed")
