package ports

// Cipher seals statement parameters into text that can be stored in a
// character column, and opens them again. The scope is authenticated with
// the value: a value sealed under one scope does not open under another.
type Cipher interface {
	Seal(scope string, plaintext []byte) (string, error)
	Open(scope string, stored string) ([]byte, error)
}
