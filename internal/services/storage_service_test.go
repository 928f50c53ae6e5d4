// internal/services/storage_service_test.go
package services

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kavithma-Dharmathilake/CarSaleWebApp/internal/config"
)

var jpegBytes = append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{0x00}, 64)...)

func newLocalStorageService(t *testing.T) *StorageService {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{Port: "5000"},
		AWS: config.AWSConfig{
			Region:   "us-east-1",
			S3Bucket: "car-sale-listing-images",
		},
	}
	svc, err := NewStorageService(cfg)
	require.NoError(t, err)
	require.NotNil(t, svc)
	return svc
}

func multipartImage(t *testing.T, filename string, content []byte) (multipart.File, *multipart.FileHeader) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	file, header, err := req.FormFile("image")
	require.NoError(t, err)
	return file, header
}

func TestUploadImageLocalMode(t *testing.T) {
	svc := newLocalStorageService(t)
	file, header := multipartImage(t, "corolla.jpg", jpegBytes)

	result, err := svc.UploadImage(file, header, ListingImageOptions())
	require.NoError(t, err)

	assert.Contains(t, result.URL, "http://localhost:5000/uploads/car-listings/")
	assert.Contains(t, result.Key, "car-listings/")
	assert.Equal(t, int64(len(jpegBytes)), result.Size)

	// The public URL maps back onto the stored key and the object can be
	// removed through it.
	key := svc.KeyFromURL(result.URL)
	assert.Equal(t, result.Key, key)
	assert.NoError(t, svc.DeleteImage(key))
}

func TestUploadImageRejectsDisallowedExtension(t *testing.T) {
	svc := newLocalStorageService(t)
	file, header := multipartImage(t, "notes.txt", []byte("not an image"))

	_, err := svc.UploadImage(file, header, ListingImageOptions())
	assert.Error(t, err)
}

func TestUploadImageRejectsBogusContent(t *testing.T) {
	svc := newLocalStorageService(t)
	file, header := multipartImage(t, "fake.jpg", []byte("plain text wearing a jpg extension"))

	_, err := svc.UploadImage(file, header, ListingImageOptions())
	assert.Error(t, err)
}

func TestUploadImageRejectsOversizedFile(t *testing.T) {
	svc := newLocalStorageService(t)
	file, header := multipartImage(t, "big.jpg", jpegBytes)

	options := ListingImageOptions()
	options.MaxSize = 8
	_, err := svc.UploadImage(file, header, options)
	assert.Error(t, err)
}

func TestKeyFromURLIgnoresForeignHosts(t *testing.T) {
	svc := newLocalStorageService(t)
	assert.Equal(t, "", svc.KeyFromURL("https://images.example.com/car.jpg"))
}
