package blob

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestOpenDrivers(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	cases := []struct {
		name string
		cfg  Config
		want Driver
	}{
		{"default", Config{FSRoot: root}, DriverFilesystem},
		{"fs", Config{Driver: DriverFilesystem, FSRoot: root}, DriverFilesystem},
		{"memory", Config{Driver: DriverMemory}, DriverMemory},
		{"s3", Config{Driver: DriverS3, S3: S3Config{Bucket: "b", AccessKeyID: "a", SecretAccessKey: "s"}}, DriverS3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := Open(ctx, tc.cfg)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			if s.Driver() != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, s.Driver())
			}
		})
	}
}

func TestOpenErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := Open(ctx, Config{Driver: "ftp"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
	if _, err := Open(ctx, Config{Driver: DriverS3}); err == nil {
		t.Fatalf("expected missing bucket error")
	}
}

func TestSentinelErrorsAreShared(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	if _, err := s.Put(ctx, "k", strings.NewReader("x"), PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := s.Put(ctx, "k", strings.NewReader("x"), PutOptions{}); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if _, err := s.Head(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
