// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

package auth_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tasklane/tasklane/internal/auth"
	"github.com/tasklane/tasklane/pkg/errutil"
)

func TestArgon2idHasher_Hash(t *testing.T) {
	hasher := auth.NewArgon2idHasher()

	t.Run("produces PHC formatted digest", func(t *testing.T) {
		digest, err := hasher.Hash("s3cret!")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(digest, "$argon2id$v=19$m=65536,t=1,p=4$"))
		assert.NotContains(t, digest, "s3cret!")
	})

	t.Run("same password produces different digests", func(t *testing.T) {
		first, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		second, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := hasher.Hash("")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, auth.CodeEmptyPassword)
	})
}

func TestArgon2idHasher_Verify(t *testing.T) {
	hasher := auth.NewArgon2idHasher()

	digest, err := hasher.Hash("correct-horse")
	require.NoError(t, err)

	t.Run("correct password verifies", func(t *testing.T) {
		ok, err := hasher.Verify("correct-horse", digest)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("wrong password is a mismatch, not an error", func(t *testing.T) {
		ok, err := hasher.Verify("wrong-horse", digest)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	malformed := []struct {
		name    string
		digest  string
		message string
	}{
		{"not a digest", "not-a-valid-hash", "invalid hash format"},
		{"wrong algorithm", "$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA", "unsupported hash algorithm"},
		{"bad version", "$argon2id$vXX$m=65536,t=1,p=4$c2FsdA$aGFzaA", ""},
		{"unknown version", "$argon2id$v=16$m=65536,t=1,p=4$c2FsdA$aGFzaA", "unsupported argon2 version"},
		{"bad parameters", "$argon2id$v=19$invalid$c2FsdA$aGFzaA", ""},
		{"bad salt", "$argon2id$v=19$m=65536,t=1,p=4$!!!invalid!!!$aGFzaA", ""},
		{"bad key", "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$!!!invalid!!!", ""},
		{"threads overflow", "$argon2id$v=19$m=65536,t=1,p=256$c2FsdA$aGFzaA", "threads value"},
		{"zero threads", "$argon2id$v=19$m=65536,t=1,p=0$c2FsdA$aGFzaA", "threads value"},
	}

	for _, tt := range malformed {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := hasher.Verify("password", tt.digest)
			require.Error(t, err)
			assert.False(t, ok)
			errutil.AssertErrorCode(t, err, auth.CodeInvalidHash)
			if tt.message != "" {
				assert.Contains(t, err.Error(), tt.message)
			}
		})
	}
}

func TestArgon2idHasher_LegacyBcrypt(t *testing.T) {
	hasher := auth.NewArgon2idHasher()

	legacy, err := bcrypt.GenerateFromPassword([]byte("legacy-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	t.Run("legacy digest verifies", func(t *testing.T) {
		ok, err := hasher.Verify("legacy-pass", string(legacy))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("legacy digest mismatch", func(t *testing.T) {
		ok, err := hasher.Verify("other-pass", string(legacy))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("truncated legacy digest is an error", func(t *testing.T) {
		_, err := hasher.Verify("legacy-pass", "$2a$10$short")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, auth.CodeInvalidHash)
	})

	t.Run("legacy digest needs upgrade", func(t *testing.T) {
		assert.True(t, hasher.NeedsUpgrade(string(legacy)))
	})

	t.Run("argon2id digest does not need upgrade", func(t *testing.T) {
		digest, err := hasher.Hash("password")
		require.NoError(t, err)
		assert.False(t, hasher.NeedsUpgrade(digest))
	})
}

func TestArgon2idHasher_ConcurrentUse(t *testing.T) {
	hasher := auth.NewArgon2idHasher()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			digest, err := hasher.Hash("parallel-pass")
			assert.NoError(t, err)
			ok, err := hasher.Verify("parallel-pass", digest)
			assert.NoError(t, err)
			assert.True(t, ok)
		}()
	}
	wg.Wait()
}
