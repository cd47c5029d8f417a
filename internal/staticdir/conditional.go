package staticdir

import (
	"crypto/md5"
	"encoding/hex"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
)

// IsNotModified reports whether a 304 applies, given the request headers and
// the validators of the response that would otherwise be sent.
//
// An If-None-Match hit wins outright. If-Modified-Since is only consulted
// when no entity tag matched.
func IsNotModified(req, resp http.Header) bool {
	if etagMatches(req, resp) {
		return true
	}

	ims, lm := req.Get("If-Modified-Since"), resp.Get("Last-Modified")
	if ims == "" || lm == "" {
		return false
	}
	since, err := http.ParseTime(ims)
	if err != nil {
		return false
	}
	modified, err := http.ParseTime(lm)
	if err != nil {
		return false
	}
	return !since.Before(modified)
}

func etagMatches(req, resp http.Header) bool {
	inm := strings.Join(req.Values("If-None-Match"), ",")
	if inm == "" {
		return false
	}
	etag := strings.TrimSpace(resp.Get("ETag"))
	if etag == "" {
		return false
	}
	for _, tag := range strings.Split(inm, ",") {
		tag = strings.TrimPrefix(strings.TrimSpace(tag), "W/")
		if tag == etag || tag == "*" {
			return true
		}
	}
	return false
}

// etagFor derives a strong entity tag from a file's size and mtime.
func etagFor(info fs.FileInfo) string {
	base := strconv.FormatInt(info.ModTime().UnixNano(), 10) + "-" + strconv.FormatInt(info.Size(), 10)
	sum := md5.Sum([]byte(base))
	return `"` + hex.EncodeToString(sum[:]) + `"`
}
