// Package naming derives every file name the pipeline produces: the local
// download path, the converted artifact path, the uploaded remote path, and
// the ".processed" archive name used when a conversion is not worth keeping.
//
// Remote names are POSIX paths (package path); local names use the host
// separator (package path/filepath).
package naming
