package docstore

import (
	"encoding/base64"
	"fmt"
	"hash/fnv"
	"sort"
)

// continuation is the decoded form of a continuation token. The hash binds a
// token to the query that produced it so it cannot be replayed elsewhere.
type continuation struct {
	Offset int    `json:"o"`
	Hash   uint64 `json:"h"`
}

func queryHash(collection string, req QueryRequest) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%d\x00", collection, req.PartitionKey, req.Text, req.Limit)
	keys := make([]string, 0, len(req.Params))
	for k := range req.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(h, "%s=%v\x00", k, req.Params[k])
	}
	return h.Sum64()
}

func encodeToken(offset int, hash uint64) string {
	b, _ := codec.Marshal(continuation{Offset: offset, Hash: hash})
	return base64.RawURLEncoding.EncodeToString(b)
}

func decodeToken(tok string, hash uint64) (int, error) {
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil {
		return 0, badRequest("malformed continuation token")
	}
	var c continuation
	if err := codec.Unmarshal(raw, &c); err != nil || c.Offset < 0 {
		return 0, badRequest("malformed continuation token")
	}
	if c.Hash != hash {
		return 0, badRequest("continuation token does not belong to this query")
	}
	return c.Offset, nil
}
