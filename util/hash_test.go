package util_test

import (
	"testing"

	"github.com/downfa11-org/cursus-ack/util"
)

func TestHashDeterministic(t *testing.T) {
	key := "my-group"
	hash1 := util.Hash(key)
	hash2 := util.Hash(key)

	if hash1 != hash2 {
		t.Errorf("Hash should be deterministic, got %v and %v", hash1, hash2)
	}
}

func TestHashDifferentKeys(t *testing.T) {
	if util.Hash("group-one") == util.Hash("group-two") {
		t.Errorf("Hash should produce different results for different keys")
	}
}

func TestShardIndex(t *testing.T) {
	shards := 5
	keys := []string{"a", "b", "c", "d", "e", ""}

	for _, key := range keys {
		index := util.Hash(key) % shards
		if index < 0 || index >= shards {
			t.Errorf("shard index out of bounds: %v", index)
		}
	}
}
