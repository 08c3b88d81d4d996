package ports

//go:generate mockgen -source=fingerprint.go -destination=mocks/mock_fingerprint.go -package=mocks

// Fingerprinter hashes lockfile contents.
type Fingerprinter interface {
	Fingerprint(path string) (uint64, error)
}
