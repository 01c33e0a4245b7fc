// Package librarykey restricts who can freeze a bundle into a
// domain.Library. Only internal/validator asks for a key, after every
// reference of the bundle was checked.
package librarykey

// Key authorizes domain.NewLibrary. Its zero value is not valid.
type Key struct {
	granted bool
}

// Grant returns a valid key.
func Grant() Key {
	return Key{granted: true}
}

// Valid reports whether k was obtained from Grant.
func (k Key) Valid() bool {
	return k.granted
}
