package handlers

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/lucifer-kj/naazbookdepot-19-sub003/dtos"
	"github.com/lucifer-kj/naazbookdepot-19-sub003/firebase"
	"github.com/lucifer-kj/naazbookdepot-19-sub003/models"
	"github.com/lucifer-kj/naazbookdepot-19-sub003/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// uploadImagesConcurrently downloads external image URLs and re-uploads them to
// Firebase, at most three transfers in flight at a time.
func uploadImagesConcurrently(storage firebase.StorageClient, bookID uuid.UUID, imageURLs []string) ([]models.BookImage, []error) {
	const maxConcurrent = 3
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, maxConcurrent)

	type imageResult struct {
		index int
		url   string
		err   error
	}

	results := make(chan imageResult, len(imageURLs))

	for i, url := range imageURLs {
		wg.Add(1)
		semaphore <- struct{}{} // Acquire

		go func(idx int, imageURL string) {
			defer wg.Done()
			defer func() { <-semaphore }() // Release

			firebaseURL, err := storage.DownloadAndUploadImage(imageURL, bookID.String())
			results <- imageResult{index: idx, url: firebaseURL, err: err}
		}(i, url)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	images := make([]models.BookImage, 0, len(imageURLs))
	errs := make([]error, len(imageURLs))
	uploaded := make([]string, len(imageURLs))
	for result := range results {
		if result.err != nil {
			errs[result.index] = result.err
			continue
		}
		uploaded[result.index] = result.url
	}

	// Keep input order so the first successful URL becomes the primary image.
	for i, url := range uploaded {
		if url == "" {
			continue
		}
		images = append(images, models.BookImage{
			BookID:    bookID,
			ImageURL:  url,
			IsPrimary: len(images) == 0 && i == 0,
		})
	}

	return images, errs
}

// BatchImportBooks accepts a JSON list of books and processes it in the
// background. Books are matched on ISBN: existing rows are updated, the rest
// created. The response carries a job ID the client polls for progress.
func (h *BookHandler) BatchImportBooks(c *gin.Context) {
	var req dtos.BookImportRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	job := utils.Store.CreateJob(len(req.Books))

	go h.processBatchImport(job.ID, req.Books)

	c.JSON(http.StatusAccepted, gin.H{
		"job_id": job.ID.String(),
		"status": "processing",
		"total":  job.Total,
	})
}

// GetBatchJobStatus returns the current state of a batch import job.
func (h *BookHandler) GetBatchJobStatus(c *gin.Context) {
	jobUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid job ID"})
		return
	}

	job, exists := utils.Store.GetJob(jobUUID)
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	c.JSON(http.StatusOK, job)
}

func (h *BookHandler) processBatchImport(jobID uuid.UUID, items []dtos.BookImportItem) {
	utils.Store.SetProcessing(jobID)

	// Categories are resolved by name, case-insensitively, and created on
	// first use. The cache keeps repeated lookups off the database.
	categoryCache := make(map[string]uuid.UUID)
	var categoryMutex sync.Mutex

	var allCategories []models.Category
	if err := h.DB.Find(&allCategories).Error; err != nil {
		log.Printf("Error loading categories for import: %v", err)
	} else {
		for _, cat := range allCategories {
			categoryCache[strings.ToLower(cat.Name)] = cat.ID
		}
	}

	const maxConcurrentBooks = 5
	semaphore := make(chan struct{}, maxConcurrentBooks)
	var wg sync.WaitGroup

	total := len(items)
	var progressMutex sync.Mutex
	processed := 0

	for i, item := range items {
		wg.Add(1)
		semaphore <- struct{}{} // Acquire

		go func(idx int, data dtos.BookImportItem) {
			defer wg.Done()
			defer func() { <-semaphore }() // Release

			created, err := h.importBook(data, categoryCache, &categoryMutex)

			progressMutex.Lock()
			processed++
			progress := processed * 100 / total
			progressMutex.Unlock()

			utils.Store.UpdateJob(jobID, func(j *dtos.BatchJob) {
				j.Processed++
				j.Progress = progress
				if err != nil {
					j.Failed++
					j.Errors = append(j.Errors, dtos.JobError{
						Row:    idx + 2, // rows are 1-indexed with a header
						Book:   data.Name,
						Fields: map[string]string{"error": err.Error()},
					})
				} else if created {
					j.Created++
				} else {
					j.Updated++
				}
			})
		}(i, item)
	}

	wg.Wait()

	status := dtos.JobStatusCompleted
	if job, ok := utils.Store.GetJob(jobID); ok && job.Failed == job.Total {
		status = dtos.JobStatusFailed
	}
	utils.Store.CompleteJob(jobID, status)
}

// importBook creates or updates a single book row. It reports whether a new
// row was created.
func (h *BookHandler) importBook(data dtos.BookImportItem, categoryCache map[string]uuid.UUID, categoryMutex *sync.Mutex) (bool, error) {
	categoryID, err := h.resolveCategory(data.CategoryName, categoryCache, categoryMutex)
	if err != nil {
		return false, err
	}

	var book models.Book
	isbn := strings.TrimSpace(data.ISBN)
	created := false
	if err := h.DB.Where("isbn = ?", isbn).First(&book).Error; err != nil {
		book = models.Book{ID: uuid.New(), ISBN: isbn}
		created = true
	}

	book.Name = data.Name
	book.Author = data.Author
	book.Publisher = data.Publisher
	if data.Language != "" {
		book.Language = data.Language
	}
	book.Pages = data.Pages
	book.Price = data.Price
	book.DiscountPrice = data.DiscountPrice
	book.CategoryID = categoryID
	book.Stock = data.Stock
	book.Description = data.Description
	book.Featured = data.Featured

	if created {
		if err := h.DB.Create(&book).Error; err != nil {
			return false, fmt.Errorf("failed to create book: %v", err)
		}
	} else {
		if err := h.DB.Save(&book).Error; err != nil {
			return false, fmt.Errorf("failed to update book: %v", err)
		}
	}

	if len(data.ImageURLs) > 0 {
		if err := h.importImages(&book, data.ImageURLs); err != nil {
			return created, err
		}
	}

	return created, nil
}

// importImages uploads URLs the book does not already have. Existing images
// are left alone so re-running an import does not duplicate them.
func (h *BookHandler) importImages(book *models.Book, urls []string) error {
	var existing []models.BookImage
	if err := h.DB.Where("book_id = ?", book.ID).Find(&existing).Error; err != nil {
		return fmt.Errorf("failed to load existing images: %v", err)
	}

	seen := make(map[string]bool)
	for _, img := range existing {
		seen[img.ImageURL] = true
	}

	var toUpload []string
	for _, url := range urls {
		url = strings.TrimSpace(url)
		if url == "" || seen[url] {
			continue
		}
		toUpload = append(toUpload, url)
	}
	if len(toUpload) == 0 {
		return nil
	}

	images, errs := uploadImagesConcurrently(h.Storage, book.ID, toUpload)
	for i, err := range errs {
		if err != nil {
			log.Printf("Failed to fetch image %s for book %s: %v", toUpload[i], book.Name, err)
		}
	}

	if len(images) == 0 {
		return nil
	}
	if len(existing) > 0 {
		// The book already has a primary image.
		for i := range images {
			images[i].IsPrimary = false
		}
	}
	if err := h.DB.CreateInBatches(images, 100).Error; err != nil {
		return fmt.Errorf("failed to save images: %v", err)
	}
	return nil
}

func (h *BookHandler) resolveCategory(name string, cache map[string]uuid.UUID, mu *sync.Mutex) (uuid.UUID, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return uuid.Nil, fmt.Errorf("category name is required")
	}

	mu.Lock()
	defer mu.Unlock()

	if id, ok := cache[key]; ok {
		return id, nil
	}

	category := models.Category{
		ID:   uuid.New(),
		Name: strings.TrimSpace(name),
	}
	if err := h.DB.Create(&category).Error; err != nil {
		return uuid.Nil, fmt.Errorf("failed to create category %q: %v", name, err)
	}
	cache[key] = category.ID
	return category.ID, nil
}
