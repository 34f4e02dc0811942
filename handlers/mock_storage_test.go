package handlers

import "mime/multipart"

type mockStorage struct {
	UploadBookImageFn        func(file multipart.File, filename, contentType string) (string, error)
	DeleteFileFn             func(objectPath string) error
	DownloadAndUploadImageFn func(imageURL, bookID string) (string, error)
	DeleteFileCalls          []string
	UploadCallCount          int
}

func newMockStorage() *mockStorage {
	return &mockStorage{
		DeleteFileCalls: []string{},
	}
}

func (m *mockStorage) UploadBookImage(file multipart.File, filename, contentType string) (string, error) {
	m.UploadCallCount++
	if m.UploadBookImageFn != nil {
		return m.UploadBookImageFn(file, filename, contentType)
	}
	return "https://storage.googleapis.com/test-bucket/books/test_image.jpg", nil
}

func (m *mockStorage) DeleteFile(objectPath string) error {
	m.DeleteFileCalls = append(m.DeleteFileCalls, objectPath)
	if m.DeleteFileFn != nil {
		return m.DeleteFileFn(objectPath)
	}
	return nil
}

func (m *mockStorage) DownloadAndUploadImage(imageURL, bookID string) (string, error) {
	m.UploadCallCount++
	if m.DownloadAndUploadImageFn != nil {
		return m.DownloadAndUploadImageFn(imageURL, bookID)
	}
	return "https://storage.googleapis.com/test-bucket/books/" + bookID + "_image.jpg", nil
}
