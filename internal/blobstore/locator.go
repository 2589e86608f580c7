package blobstore

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

type AddressStyle int

const (
	VirtualHosted AddressStyle = iota
	PathStyle
	S3URI
)

func (s AddressStyle) String() string {
	switch s {
	case VirtualHosted:
		return "virtual-hosted"
	case PathStyle:
		return "path"
	default:
		return "s3"
	}
}

var ErrInvalidLocator = errors.New("invalid blob locator")

// Locator is a bucket/key pair decoded from a locator URL. Scheme and Host are
// kept so the URL can be rebuilt exactly.
type Locator struct {
	Scheme string
	Host   string
	Bucket string
	Key    string
	Region string
	Style  AddressStyle
}

// ParseLocator extracts bucket and key from virtual-hosted
// (https://bucket.s3.region.amazonaws.com/key), path-style
// (https://s3.region.amazonaws.com/bucket/key, https://minio:9000/bucket/key)
// and s3://bucket/key URLs. The key is returned URL-decoded.
func ParseLocator(raw string) (Locator, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Locator{}, fmt.Errorf("%w: %v", ErrInvalidLocator, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if u.Host == "" {
		return Locator{}, fmt.Errorf("%w: %q has no host", ErrInvalidLocator, raw)
	}
	p := strings.TrimPrefix(u.Path, "/")

	l := Locator{Scheme: scheme, Host: u.Host}
	switch scheme {
	case "s3":
		l.Style = S3URI
		l.Bucket = u.Host
		l.Key = p
	case "http", "https":
		host := strings.ToLower(u.Hostname())
		if bucket, region, ok := virtualHost(host); ok {
			l.Style = VirtualHosted
			l.Bucket = bucket
			l.Region = region
			l.Key = p
			break
		}
		l.Style = PathStyle
		l.Region = pathStyleRegion(host)
		bucket, key, _ := strings.Cut(p, "/")
		l.Bucket = bucket
		l.Key = key
	default:
		return Locator{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidLocator, u.Scheme)
	}
	if l.Bucket == "" || l.Key == "" {
		return Locator{}, fmt.Errorf("%w: %q is missing bucket or key", ErrInvalidLocator, raw)
	}
	return l, nil
}

// virtualHost recognises bucket.s3.amazonaws.com, bucket.s3.region.amazonaws.com
// and the legacy bucket.s3-region.amazonaws.com forms.
func virtualHost(host string) (bucket, region string, ok bool) {
	if !strings.HasSuffix(host, ".amazonaws.com") {
		return "", "", false
	}
	if strings.HasPrefix(host, "s3.") || strings.HasPrefix(host, "s3-") {
		return "", "", false
	}
	idx := max(strings.LastIndex(host, ".s3."), strings.LastIndex(host, ".s3-"))
	if idx <= 0 {
		return "", "", false
	}
	bucket = host[:idx]
	rest := strings.TrimSuffix(host[idx+1:], ".amazonaws.com")
	return bucket, regionOf(rest), true
}

func pathStyleRegion(host string) string {
	if !strings.HasSuffix(host, ".amazonaws.com") {
		return ""
	}
	return regionOf(strings.TrimSuffix(host, ".amazonaws.com"))
}

// regionOf takes "s3", "s3.us-west-2", "s3-eu-west-1" or "s3.dualstack.us-east-1".
func regionOf(s3host string) string {
	rest := strings.TrimPrefix(strings.TrimPrefix(s3host, "s3"), "-")
	rest = strings.TrimPrefix(rest, ".")
	rest = strings.TrimPrefix(rest, "dualstack.")
	return rest
}

// URL rebuilds the locator URL with the key path-escaped per segment.
func (l Locator) URL() string {
	var b strings.Builder
	b.WriteString(l.Scheme)
	b.WriteString("://")
	b.WriteString(l.Host)
	b.WriteByte('/')
	if l.Style == PathStyle {
		b.WriteString(url.PathEscape(l.Bucket))
		b.WriteByte('/')
	}
	b.WriteString(EscapeKey(l.Key))
	return b.String()
}

// Filename is the last key segment.
func (l Locator) Filename() string { return path.Base(l.Key) }

// EscapeKey path-escapes every segment of key, keeping the separators.
func EscapeKey(key string) string {
	segs := strings.Split(key, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

var audioExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".ogg":  true,
	".m4a":  true,
	".aac":  true,
	".flac": true,
}

// IsAudioKey reports whether a key names audio content: a known audio
// extension, or a path segment literally "audio". Folder keys never do.
func IsAudioKey(key string) bool {
	if key == "" || strings.HasSuffix(key, "/") {
		return false
	}
	lower := strings.ToLower(key)
	if audioExtensions[path.Ext(lower)] {
		return true
	}
	segs := strings.Split(lower, "/")
	for _, s := range segs[:len(segs)-1] {
		if s == audioSegment {
			return true
		}
	}
	return false
}
