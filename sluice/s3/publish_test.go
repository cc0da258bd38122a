package s3

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeArtifact(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNew_NilClient_ReturnsError(t *testing.T) {
	_, err := New(nil, Config{Bucket: "bucket"})
	if err == nil {
		t.Fatal("expected error for nil client, got nil")
	}
}

func TestNew_EmptyBucket_ReturnsError(t *testing.T) {
	_, err := New(NewMockS3Client(), Config{})
	if err == nil {
		t.Fatal("expected error for empty bucket, got nil")
	}
	if !strings.Contains(err.Error(), "bucket is required") {
		t.Errorf("expected bucket error, got: %v", err)
	}
}

func TestPublish_UploadsAndReturnsLocator(t *testing.T) {
	client := NewMockS3Client()
	pub, err := New(client, Config{Bucket: "exports", Prefix: "tripdata"})
	if err != nil {
		t.Fatal(err)
	}

	artifact := writeArtifact(t, "yellow_tripdata_2023-01.csv", "id,fare\n1,12.50\n")

	locator, err := pub.Publish(context.Background(), artifact)
	if err != nil {
		t.Fatal(err)
	}

	want := "s3://exports/tripdata/yellow_tripdata_2023-01.csv"
	if locator != want {
		t.Errorf("expected locator %q, got %q", want, locator)
	}

	data, ok := client.Object("tripdata/yellow_tripdata_2023-01.csv")
	if !ok {
		t.Fatal("expected object in mock store")
	}
	if string(data) != "id,fare\n1,12.50\n" {
		t.Errorf("uploaded content mismatch: %q", data)
	}
	if client.HeadObjectCalls != 1 {
		t.Errorf("expected upload verification, got %d HeadObject calls", client.HeadObjectCalls)
	}
}

func TestPublish_PrefixGetsTrailingSlash(t *testing.T) {
	client := NewMockS3Client()
	pub, err := New(client, Config{Bucket: "exports", Prefix: "a/b/"})
	if err != nil {
		t.Fatal(err)
	}

	artifact := writeArtifact(t, "out.csv", "x\n")
	locator, err := pub.Publish(context.Background(), artifact)
	if err != nil {
		t.Fatal(err)
	}
	if locator != "s3://exports/a/b/out.csv" {
		t.Errorf("unexpected locator: %q", locator)
	}
}

func TestPublish_MissingFile_ReturnsError(t *testing.T) {
	pub, err := New(NewMockS3Client(), Config{Bucket: "exports"})
	if err != nil {
		t.Fatal(err)
	}

	_, err = pub.Publish(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	if err == nil {
		t.Fatal("expected error for missing artifact, got nil")
	}
}

func TestPublish_UploadError_Propagated(t *testing.T) {
	client := NewMockS3Client()
	client.PutObjectErr = errors.New("access denied")

	pub, err := New(client, Config{Bucket: "exports"})
	if err != nil {
		t.Fatal(err)
	}

	artifact := writeArtifact(t, "out.csv", "x\n")
	_, err = pub.Publish(context.Background(), artifact)
	if err == nil {
		t.Fatal("expected upload error, got nil")
	}
	if !strings.Contains(err.Error(), "access denied") {
		t.Errorf("expected cause in error, got: %v", err)
	}
}

func TestPublish_VerificationMiss_ReturnsError(t *testing.T) {
	client := NewMockS3Client()
	client.DropUploads = true

	pub, err := New(client, Config{Bucket: "exports"})
	if err != nil {
		t.Fatal(err)
	}

	artifact := writeArtifact(t, "out.csv", "x\n")
	_, err = pub.Publish(context.Background(), artifact)
	if err == nil {
		t.Fatal("expected verification error, got nil")
	}
	if !strings.Contains(err.Error(), "verification failed") {
		t.Errorf("expected verification error, got: %v", err)
	}
}

func TestPublish_Republish_Overwrites(t *testing.T) {
	client := NewMockS3Client()
	pub, err := New(client, Config{Bucket: "exports"})
	if err != nil {
		t.Fatal(err)
	}

	first := writeArtifact(t, "out.csv", "first\n")
	if _, err := pub.Publish(context.Background(), first); err != nil {
		t.Fatal(err)
	}

	second := writeArtifact(t, "out.csv", "second\n")
	if _, err := pub.Publish(context.Background(), second); err != nil {
		t.Fatalf("expected re-publish to overwrite, got: %v", err)
	}

	data, _ := client.Object("out.csv")
	if string(data) != "second\n" {
		t.Errorf("expected overwritten object, got %q", data)
	}
}
