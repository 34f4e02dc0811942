package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/lucifer-kj/naazbookdepot-19-sub003/firebase"
	"github.com/lucifer-kj/naazbookdepot-19-sub003/models"
	"github.com/lucifer-kj/naazbookdepot-19-sub003/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookHandler struct {
	DB      *gorm.DB
	Storage firebase.StorageClient
}

func (h *BookHandler) GetBooks(c *gin.Context) {
	var books []models.Book
	query := h.DB.Preload("Category").Preload("Images")

	if categoryID := c.Query("category_id"); categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}

	if c.Query("featured") == "true" {
		query = query.Where("featured = ?", true)
	}

	// Search matches title and author
	if search := c.Query("search"); search != "" {
		query = query.Where("LOWER(name) LIKE LOWER(?) OR LOWER(author) LIKE LOWER(?)", "%"+search+"%", "%"+search+"%")
	}

	switch c.Query("sort") {
	case "price_asc":
		query = query.Order("price asc")
	case "price_desc":
		query = query.Order("price desc")
	case "newest":
		query = query.Order("created_at desc")
	default:
		query = query.Order("name asc")
	}

	if err := query.Find(&books).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch books"})
		return
	}

	c.JSON(http.StatusOK, books)
}

func (h *BookHandler) GetBook(c *gin.Context) {
	id := c.Param("id")
	var book models.Book

	if err := h.DB.Preload("Category").Preload("Images").Where("id = ?", id).First(&book).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Book not found"})
		return
	}
	c.JSON(http.StatusOK, book)
}

func (h *BookHandler) GetBooksPaginated(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	var books []models.Book
	var total int64

	query := h.DB.Preload("Category").Preload("Images")

	if categoryID := c.Query("category_id"); categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}
	if search := c.Query("search"); search != "" {
		query = query.Where("LOWER(name) LIKE LOWER(?) OR LOWER(author) LIKE LOWER(?)", "%"+search+"%", "%"+search+"%")
	}

	query.Model(&models.Book{}).Count(&total)
	query.Order("created_at desc").Offset(offset).Limit(limit).Find(&books)

	c.JSON(http.StatusOK, gin.H{
		"books": books,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

func (h *BookHandler) CreateBook(c *gin.Context) {
	var book models.Book

	book.Name = c.PostForm("name")
	book.Author = c.PostForm("author")
	book.ISBN = c.PostForm("isbn")
	book.Publisher = c.PostForm("publisher")
	book.Language = c.PostForm("language")
	book.Description = c.PostForm("description")

	if book.Name == "" || book.Author == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and author are required"})
		return
	}

	book.Pages, _ = strconv.Atoi(c.PostForm("pages"))
	book.Price, _ = strconv.ParseFloat(c.PostForm("price"), 64)
	if book.Price <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price must be greater than zero"})
		return
	}

	if discount := c.PostForm("discount_price"); discount != "" {
		price, _ := strconv.ParseFloat(discount, 64)
		book.DiscountPrice = &price
	}

	book.Stock, _ = strconv.Atoi(c.PostForm("stock"))
	book.Featured = c.PostForm("featured") == "true"

	categoryID, err := uuid.Parse(c.PostForm("category_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category ID"})
		return
	}
	book.CategoryID = categoryID

	if err := h.DB.First(&models.Category{}, "id = ?", book.CategoryID).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category"})
		return
	}

	book.ID = uuid.New()

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse form"})
		return
	}

	files := form.File["images"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one cover image is required"})
		return
	}

	if err := h.DB.Create(&book).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create book"})
		return
	}

	var bookImages []models.BookImage
	for i, fileHeader := range files {
		if err := utils.ValidateFileUpload(fileHeader); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image"})
			return
		}

		imageURL, err := h.Storage.UploadBookImage(
			file,
			fileHeader.Filename,
			fileHeader.Header.Get("Content-Type"),
		)
		file.Close()

		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Image upload failed"})
			return
		}

		// First image is marked as primary
		bookImages = append(bookImages, models.BookImage{
			BookID:    book.ID,
			ImageURL:  imageURL,
			IsPrimary: i == 0,
		})
	}

	if err := h.DB.Create(&bookImages).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save book images"})
		return
	}

	h.DB.Preload("Category").Preload("Images").First(&book, book.ID)
	c.JSON(http.StatusCreated, book)
}

func (h *BookHandler) UpdateBook(c *gin.Context) {
	id := c.Param("id")
	var book models.Book

	if err := h.DB.Preload("Images").Where("id = ?", id).First(&book).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Book not found"})
		return
	}

	if name := c.PostForm("name"); name != "" {
		book.Name = name
	}
	if author := c.PostForm("author"); author != "" {
		book.Author = author
	}
	if isbn := c.PostForm("isbn"); isbn != "" {
		book.ISBN = isbn
	}
	if publisher := c.PostForm("publisher"); publisher != "" {
		book.Publisher = publisher
	}
	if language := c.PostForm("language"); language != "" {
		book.Language = language
	}
	if description := c.PostForm("description"); description != "" {
		book.Description = description
	}
	if pages := c.PostForm("pages"); pages != "" {
		book.Pages, _ = strconv.Atoi(pages)
	}
	if price := c.PostForm("price"); price != "" {
		book.Price, _ = strconv.ParseFloat(price, 64)
	}
	if discount := c.PostForm("discount_price"); discount != "" {
		price, _ := strconv.ParseFloat(discount, 64)
		book.DiscountPrice = &price
	}
	if stock := c.PostForm("stock"); stock != "" {
		book.Stock, _ = strconv.Atoi(stock)
	}
	if featured := c.PostForm("featured"); featured != "" {
		book.Featured = featured == "true"
	}

	if categoryID := c.PostForm("category_id"); categoryID != "" {
		newCategoryID, err := uuid.Parse(categoryID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category ID"})
			return
		}
		if err := h.DB.First(&models.Category{}, "id = ?", newCategoryID).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category"})
			return
		}
		book.CategoryID = newCategoryID
	}

	form, err := c.MultipartForm()
	if err == nil {
		files := form.File["images"]
		imagesToDelete := form.Value["delete_images"]

		for _, imageID := range imagesToDelete {
			var bookImage models.BookImage
			if err := h.DB.Where("id = ? AND book_id = ?", imageID, book.ID).First(&bookImage).Error; err == nil {
				objectPath, err := utils.ExtractObjectPath(bookImage.ImageURL)
				if err == nil && objectPath != "" {
					if err := h.Storage.DeleteFile(objectPath); err != nil {
						log.Println("Failed to delete image from Firebase:", err)
					}
				}
				h.DB.Delete(&bookImage)
			}
		}

		if len(files) > 0 {
			var newImages []models.BookImage
			for i, fileHeader := range files {
				if err := utils.ValidateFileUpload(fileHeader); err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}

				file, err := fileHeader.Open()
				if err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image"})
					return
				}

				imageURL, err := h.Storage.UploadBookImage(
					file,
					fileHeader.Filename,
					fileHeader.Header.Get("Content-Type"),
				)
				file.Close()

				if err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": "Image upload failed"})
					return
				}

				newImages = append(newImages, models.BookImage{
					BookID:    book.ID,
					ImageURL:  imageURL,
					IsPrimary: len(book.Images) == 0 && i == 0,
				})
			}

			if err := h.DB.Create(&newImages).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save book images"})
				return
			}
		}
	}

	if primaryImageID := c.PostForm("primary_image_id"); primaryImageID != "" {
		h.DB.Model(&models.BookImage{}).
			Where("book_id = ?", book.ID).
			Update("is_primary", false)
		h.DB.Model(&models.BookImage{}).
			Where("id = ? AND book_id = ?", primaryImageID, book.ID).
			Update("is_primary", true)
	}

	if err := h.DB.Save(&book).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update book"})
		return
	}

	h.DB.Preload("Category").Preload("Images").First(&book, book.ID)
	c.JSON(http.StatusOK, book)
}

func (h *BookHandler) DeleteBook(c *gin.Context) {
	id := c.Param("id")
	var book models.Book

	if err := h.DB.Preload("Images").First(&book, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Book not found"})
		return
	}

	for _, bookImage := range book.Images {
		// Images referenced by past orders stay in storage so order
		// history keeps rendering.
		var orderImageCount int64
		h.DB.Model(&models.OrderItem{}).
			Where("image_url = ?", bookImage.ImageURL).
			Count(&orderImageCount)

		if orderImageCount > 0 {
			log.Printf("Image %s is referenced in %d order(s) - preserving in storage",
				bookImage.ImageURL, orderImageCount)
		} else {
			objectPath, err := utils.ExtractObjectPath(bookImage.ImageURL)
			if err == nil && objectPath != "" {
				if err := h.Storage.DeleteFile(objectPath); err != nil {
					log.Printf("Failed to delete image %s from Firebase: %v", bookImage.ImageURL, err)
				}
			}
		}

		if err := h.DB.Delete(&bookImage).Error; err != nil {
			log.Printf("Failed to delete book image record %s: %v", bookImage.ID, err)
		}
	}

	if err := h.DB.Delete(&models.Book{}, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete book"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Book deleted successfully"})
}
