package firebase

import "mime/multipart"

// StorageClient abstracts Firebase Storage operations for dependency injection and testing.
type StorageClient interface {
	UploadBookImage(file multipart.File, filename, contentType string) (string, error)
	DeleteFile(objectPath string) error
	DownloadAndUploadImage(imageURL, bookID string) (string, error)
}

// FirebaseStorageClient is the real implementation that delegates to package-level functions.
type FirebaseStorageClient struct{}

func NewStorageClient() StorageClient {
	return &FirebaseStorageClient{}
}

func (f *FirebaseStorageClient) UploadBookImage(file multipart.File, filename, contentType string) (string, error) {
	return UploadBookImage(file, filename, contentType)
}

func (f *FirebaseStorageClient) DeleteFile(objectPath string) error {
	return DeleteFile(objectPath)
}

func (f *FirebaseStorageClient) DownloadAndUploadImage(imageURL, bookID string) (string, error) {
	return DownloadAndUploadImage(imageURL, bookID)
}
