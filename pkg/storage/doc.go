// Package storage writes rendered proxy configuration to S3-compatible
// object storage, where the proxy fleet syncs it from.
//
//	store, err := storage.New(storage.Config{
//		Bucket:    "edge-config",
//		AccessKey: os.Getenv("STORAGE_ACCESS_KEY"),
//		SecretKey: os.Getenv("STORAGE_SECRET_KEY"),
//		Endpoint:  "http://localhost:9000", // MinIO
//		PathStyle: true,
//	})
//	err = store.Put(ctx, store.Key("nginx", "shop.example.com.conf"), body, "text/plain; charset=utf-8")
//
// Errors wrap the package sentinels; ErrNotFound and ErrAccessDenied are
// derived from S3 error codes.
package storage
