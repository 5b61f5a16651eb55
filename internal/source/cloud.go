package source

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/highwayhash"
	"google.golang.org/api/iterator"

	"github.com/derekwisong/datui/internal/errs"
)

// tempFileKey is a fixed 32-byte HighwayHash key, mirroring the
// teacher's hardcoded FileHashKey: temp file names only need to be
// stable and collision-resistant across a single process, not secret.
var tempFileKey = []byte("datui source temp file key\x00\x00\x00\x00\x00\x00")

// ListS3Prefix lists object keys under bucket/prefix using "/" as the
// directory delimiter, one directory level at a time — the primitive
// internal/hiveschema walks to find the first key=value sub-prefix
// (spec §4.C step 1).
func ListS3Prefix(ctx context.Context, bucket, prefix string) (dirs []string, objects []string, err error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, nil, errs.CloudAuth.New(err.Error())
	}
	client := s3.NewFromConfig(cfg)

	out, err := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:    aws.String(bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	if err != nil {
		return nil, nil, classifyS3Error(err)
	}
	for _, cp := range out.CommonPrefixes {
		if cp.Prefix != nil {
			dirs = append(dirs, *cp.Prefix)
		}
	}
	for _, obj := range out.Contents {
		if obj.Key != nil {
			objects = append(objects, *obj.Key)
		}
	}
	return dirs, objects, nil
}

// FetchS3Tail reads the last n bytes of an S3 object via a ranged
// GetObject, used to parse a Parquet footer without downloading the
// whole file (spec §4.C step 2).
func FetchS3Tail(ctx context.Context, bucket, key string, n int64) ([]byte, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errs.CloudAuth.New(err.Error())
	}
	client := s3.NewFromConfig(cfg)

	head, err := client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return nil, classifyS3Error(err)
	}
	size := aws.ToInt64(head.ContentLength)
	start := int64(0)
	if size > n {
		start = size - n
	}

	rng := "bytes=" + itoa(start) + "-" + itoa(size-1)
	out, err := client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key), Range: aws.String(rng)})
	if err != nil {
		return nil, classifyS3Error(err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// ListS3ObjectsRecursive walks every directory level under bucket/prefix
// via repeated ListS3Prefix calls, returning every object key found —
// the enumeration step the slow concat-and-unify path needs once a
// prefix turns out not to resolve on the internal/hiveschema fast path
// (spec §4.C step 3).
func ListS3ObjectsRecursive(ctx context.Context, bucket, prefix string) ([]string, error) {
	var objects []string
	pending := []string{prefix}
	for len(pending) > 0 {
		cur := pending[0]
		pending = pending[1:]
		dirs, objs, err := ListS3Prefix(ctx, bucket, cur)
		if err != nil {
			return nil, err
		}
		objects = append(objects, objs...)
		pending = append(pending, dirs...)
	}
	return objects, nil
}

// ListGCSObjectsRecursive mirrors ListS3ObjectsRecursive for GCS.
func ListGCSObjectsRecursive(ctx context.Context, bucket, prefix string) ([]string, error) {
	var objects []string
	pending := []string{prefix}
	for len(pending) > 0 {
		cur := pending[0]
		pending = pending[1:]
		dirs, objs, err := ListGCSPrefix(ctx, bucket, cur)
		if err != nil {
			return nil, err
		}
		objects = append(objects, objs...)
		pending = append(pending, dirs...)
	}
	return objects, nil
}

// DownloadS3ToTemp downloads an S3 object to a new file under the
// context's temp dir, per spec §4.A ("any other format ... is
// downloaded to a temp file and re-resolved as Local").
func DownloadS3ToTemp(ctx context.Context, c *Context, bucket, key string) (string, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return "", errs.CloudAuth.New(err.Error())
	}
	client := s3.NewFromConfig(cfg)

	out, err := client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return "", classifyS3Error(err)
	}
	defer out.Body.Close()

	return c.spillToTemp("s3://"+bucket+"/"+key, out.Body)
}

func classifyS3Error(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "NoSuchKey") || strings.Contains(msg, "NotFound") || strings.Contains(msg, "404") {
		return errs.InputNotFound.New(msg)
	}
	if strings.Contains(msg, "AccessDenied") || strings.Contains(msg, "Forbidden") || strings.Contains(msg, "403") {
		return errs.CloudAuth.New(msg)
	}
	return errs.CloudTransient.New(msg)
}

// ListGCSPrefix mirrors ListS3Prefix for Google Cloud Storage, using
// cloud.google.com/go/storage's delimiter-based bucket iterator.
func ListGCSPrefix(ctx context.Context, bucket, prefix string) (dirs []string, objects []string, err error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, nil, errs.CloudAuth.New(err.Error())
	}
	defer client.Close()

	it := client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix, Delimiter: "/"})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, nil, classifyGCSError(err)
		}
		if attrs.Prefix != "" {
			dirs = append(dirs, attrs.Prefix)
		} else {
			objects = append(objects, attrs.Name)
		}
	}
	return dirs, objects, nil
}

// DownloadGCSToTemp downloads a GCS object to the context's temp dir.
func DownloadGCSToTemp(ctx context.Context, c *Context, bucket, key string) (string, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return "", errs.CloudAuth.New(err.Error())
	}
	defer client.Close()

	rc, err := client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		return "", classifyGCSError(err)
	}
	defer rc.Close()

	return c.spillToTemp("gs://"+bucket+"/"+key, rc)
}

func classifyGCSError(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "object doesn't exist") || strings.Contains(msg, "storage: object not exist") {
		return errs.InputNotFound.New(msg)
	}
	if strings.Contains(msg, "permission") || strings.Contains(msg, "403") {
		return errs.CloudAuth.New(msg)
	}
	return errs.CloudTransient.New(msg)
}

// DownloadHTTPToTemp downloads an http(s):// URL to the context's temp
// dir (spec §4.A: any non-cloud-native format is downloaded and
// re-resolved as Local).
func DownloadHTTPToTemp(ctx context.Context, c *Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errs.Io.New("request", err.Error())
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", errs.CloudTransient.New(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", errs.InputNotFound.New(url)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", errs.CloudAuth.New(url)
	}
	if resp.StatusCode >= 500 {
		return "", errs.CloudTransient.New(fmt.Sprintf("%s: status %d", url, resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return "", errs.InputNotFound.New(fmt.Sprintf("%s: status %d", url, resp.StatusCode))
	}

	return c.spillToTemp(url, resp.Body)
}

// spillToTemp streams r to a new file under the context's temp dir,
// named from a HighwayHash of identity (the source URI) so repeated
// downloads of the same remote object land on the same temp filename
// within a process run, the way the teacher content-addresses a file's
// cache entry by CalculateFileHashWithKey rather than a random name.
func (c *Context) spillToTemp(identity string, r io.Reader) (string, error) {
	hash, err := highwayhash.New(tempFileKey)
	if err != nil {
		return "", errs.InternalInvariant.New(err.Error())
	}
	io.WriteString(hash, identity)
	name := hex.EncodeToString(hash.Sum(nil)) + "-" + path.Base(identity)

	dest := c.TempDir + "/" + name
	f, err := os.Create(dest)
	if err != nil {
		return "", errs.Io.New("create", err.Error())
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", errs.Io.New("copy", err.Error())
	}
	c.tempDirs = append(c.tempDirs, dest)
	return dest, nil
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
