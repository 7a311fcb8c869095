package store

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"
)

// chunk is one top-level YAML document out of an ingested stream,
// captured verbatim alongside the (schema, name) pair used to index and
// version it. Re-marshalling each node individually (rather than
// re-encoding the decoded document back from internal/document's
// structured form) preserves the document exactly as the bucket PUT
// sent it.
type chunk struct {
	Schema string
	Name   string
	Raw    []byte
	Hash   string
}

// splitChunks decodes a multi-document YAML stream into one chunk per
// top-level document, extracting just enough of the envelope (schema,
// metadata.name) to index it.
func splitChunks(raw []byte) ([]chunk, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))

	var chunks []chunk
	for {
		var node yaml.Node
		if err := dec.Decode(&node); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("decode YAML stream: %w", err)
		}
		if node.Kind == 0 {
			continue
		}

		var env struct {
			Schema   string `yaml:"schema"`
			Metadata struct {
				Name string `yaml:"name"`
			} `yaml:"metadata"`
		}
		if err := node.Decode(&env); err != nil {
			return nil, fmt.Errorf("decode document envelope: %w", err)
		}
		if env.Schema == "" || env.Metadata.Name == "" {
			return nil, fmt.Errorf("document missing schema or metadata.name")
		}

		reencoded, err := yaml.Marshal(&node)
		if err != nil {
			return nil, fmt.Errorf("re-marshal document %s/%s: %w", env.Schema, env.Metadata.Name, err)
		}

		chunks = append(chunks, chunk{
			Schema: env.Schema,
			Name:   env.Metadata.Name,
			Raw:    reencoded,
			Hash:   contentHash(reencoded),
		})
	}
	return chunks, nil
}

// joinChunks concatenates chunks back into a single `---`-delimited
// stream suitable for internal/document.ParseStream.
func joinChunks(chunks []chunk) []byte {
	var buf bytes.Buffer
	for i, c := range chunks {
		if i > 0 {
			buf.WriteString("---\n")
		}
		buf.Write(c.Raw)
	}
	return buf.Bytes()
}

// contentDomain separates the store's content-addressing hash from any
// other BLAKE3 use in the process, the same keyed-hash-per-domain idiom
// internal/secret uses for its dereference cache keys.
var contentDomain = [32]byte{'d', 'e', 'c', 'k', 'h', 'a', 'n', 'd', '.', 's', 't', 'o', 'r', 'e', '.', 'c', 'o', 'n', 't', 'e', 'n', 't'}

// contentHash returns the hex-encoded BLAKE3 digest of raw, used both
// as the stored per-document content hash and as the building block of
// a bucket's aggregate hash for diffing.
func contentHash(raw []byte) string {
	hasher, err := blake3.NewKeyed(contentDomain[:])
	if err != nil {
		panic("store: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(raw)
	return hex.EncodeToString(hasher.Sum(nil))
}
