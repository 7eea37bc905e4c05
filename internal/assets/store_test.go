package assets

import (
	"context"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/yanizio/forge/internal/fault"
)

func s3Object(key string) types.Object {
	return types.Object{Key: aws.String(key)}
}

// pngHeader is the 8-byte PNG signature plus enough padding for sniffing.
var pngHeader = append([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, make([]byte, 64)...)

type fakeS3 struct {
	puts    []s3.PutObjectInput
	deletes []string
	objects []string // keys returned by ListObjectsV2
	batch   []string // keys removed via DeleteObjects
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.puts = append(f.puts, *in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	prefix := aws.ToString(in.Prefix)
	for _, key := range f.objects {
		if strings.HasPrefix(key, prefix) {
			out.Contents = append(out.Contents, s3Object(key))
		}
	}
	return out, nil
}

func (f *fakeS3) DeleteObjects(_ context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	for _, obj := range in.Delete.Objects {
		f.batch = append(f.batch, aws.ToString(obj.Key))
	}
	return &s3.DeleteObjectsOutput{}, nil
}

func TestPut_KeysUnderWebsiteAndReturnsURL(t *testing.T) {
	fake := &fakeS3{}
	store := NewWithClient(fake, "forge-assets", "https://cdn.forge.site/", 0)

	url, err := store.Put(context.Background(), "w1", pngHeader)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if len(fake.puts) != 1 {
		t.Fatalf("want 1 upload, got %d", len(fake.puts))
	}
	key := aws.ToString(fake.puts[0].Key)
	if !strings.HasPrefix(key, "w1/") || !strings.HasSuffix(key, ".png") {
		t.Fatalf("unexpected key %q", key)
	}
	if aws.ToString(fake.puts[0].ContentType) != "image/png" {
		t.Fatalf("wrong content type %q", aws.ToString(fake.puts[0].ContentType))
	}
	if url != "https://cdn.forge.site/"+key {
		t.Fatalf("unexpected url %q", url)
	}
}

func TestPut_RejectsDisallowedType(t *testing.T) {
	store := NewWithClient(&fakeS3{}, "forge-assets", "https://cdn.forge.site", 0)

	_, err := store.Put(context.Background(), "w1", []byte("%PDF-1.4 not an image"))
	if fault.KindOf(err) != fault.InvalidInput {
		t.Fatalf("want InvalidInput, got %v", err)
	}
}

func TestPut_RejectsOversize(t *testing.T) {
	store := NewWithClient(&fakeS3{}, "forge-assets", "https://cdn.forge.site", 16)

	_, err := store.Put(context.Background(), "w1", pngHeader)
	if fault.KindOf(err) != fault.InvalidInput {
		t.Fatalf("want InvalidInput, got %v", err)
	}
}

func TestRemoveForWebsite_DeletesOnlyPrefix(t *testing.T) {
	fake := &fakeS3{objects: []string{"w1/a.png", "w1/b.webp", "w2/c.png"}}
	store := NewWithClient(fake, "forge-assets", "https://cdn.forge.site", 0)

	if err := store.RemoveForWebsite(context.Background(), "w1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	want := map[string]bool{"w1/a.png": true, "w1/b.webp": true}
	if len(fake.batch) != 2 {
		t.Fatalf("want 2 deletes, got %v", fake.batch)
	}
	for _, key := range fake.batch {
		if !want[key] {
			t.Errorf("unexpected delete %q", key)
		}
	}
}
