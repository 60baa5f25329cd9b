package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/ArcanaLabs/arcana-engine/engine/domain"
)

// keyPayload is the canonical request identity. Field order is fixed by the
// struct; draw order is preserved because positions are ordered.
type keyPayload struct {
	Question string        `json:"question"`
	Draws    []domain.Draw `json:"draws"`
	Theme    domain.Theme  `json:"theme"`
	SubTopic string        `json:"sub_topic"`
	Locale   string        `json:"locale"`
}

// Key derives the cache key for an interpretation request. Identical requests
// always map to the same key.
func Key(question string, draws []domain.Draw, theme domain.Theme, subTopic, locale string) string {
	b, _ := json.Marshal(keyPayload{
		Question: question,
		Draws:    draws,
		Theme:    theme,
		SubTopic: subTopic,
		Locale:   locale,
	})
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
