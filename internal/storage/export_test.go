package storage

// S3URLForTest exercises URL construction without building a client.
func S3URLForTest(opts S3Options, key string) string {
	s := &S3Store{opts: opts}
	return s.URL(key)
}
