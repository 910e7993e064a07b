package commands

// SetTerminal replaces terminal detection and the hidden token prompt for
// tests. It returns a function restoring the originals.
func SetTerminal(isTerminal bool, secret string) func() {
	origTerminal, origSecret := stdinIsTerminal, readSecret

	stdinIsTerminal = func() bool { return isTerminal }
	readSecret = func() (string, error) { return secret, nil }

	return func() {
		stdinIsTerminal, readSecret = origTerminal, origSecret
	}
}
