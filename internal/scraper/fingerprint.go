package scraper

import (
	"github.com/google/uuid"
)

// fingerprintNamespace scopes listing fingerprints. Changing it changes
// every fingerprint stored so far.
var fingerprintNamespace = uuid.MustParse("6f1c2a4e-8d3b-5e7f-9a0c-1b2d3e4f5a6b")

// Fingerprint is the duplicate key of a listing: a name-based (SHA-1) UUID
// over title and image URL. Identical inputs give the same value in every
// run and process.
func Fingerprint(title, imageURL string) uuid.UUID {
	return uuid.NewSHA1(fingerprintNamespace, []byte(title+"\x00"+imageURL))
}
