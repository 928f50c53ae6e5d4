// internal/handlers/car.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Kavithma-Dharmathilake/CarSaleWebApp/internal/models"
	"github.com/Kavithma-Dharmathilake/CarSaleWebApp/internal/services"
	"github.com/Kavithma-Dharmathilake/CarSaleWebApp/internal/store"
	"github.com/Kavithma-Dharmathilake/CarSaleWebApp/internal/utils"
)

type CarHandler struct {
	carService     *services.CarService
	storageService *services.StorageService
}

func NewCarHandler(carService *services.CarService, storageService *services.StorageService) *CarHandler {
	return &CarHandler{
		carService:     carService,
		storageService: storageService,
	}
}

// GET /api/cars
func (h *CarHandler) GetCars(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	filter := store.CarFilter{
		Make:   c.Query("make"),
		Model:  c.Query("model"),
		Search: params.Search,
		Sort:   params.Sort,
		Order:  params.Order,
		Page:   params.Page,
		Limit:  params.Limit,
	}

	if v := c.Query("minYear"); v != "" {
		if year, err := strconv.Atoi(v); err == nil {
			filter.MinYear = &year
		}
	}
	if v := c.Query("maxYear"); v != "" {
		if year, err := strconv.Atoi(v); err == nil {
			filter.MaxYear = &year
		}
	}
	if v := c.Query("minPrice"); v != "" {
		if price, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MinPrice = &price
		}
	}
	if v := c.Query("maxPrice"); v != "" {
		if price, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MaxPrice = &price
		}
	}
	if v := c.Query("fuelType"); v != "" {
		fuelType := models.FuelType(v)
		filter.FuelType = &fuelType
	}
	if v := c.Query("transmission"); v != "" {
		transmission := models.Transmission(v)
		filter.Transmission = &transmission
	}

	// Only administrators may browse beyond active, available listings.
	if utils.IsAdminFromContext(c) {
		if v := c.Query("status"); v != "" {
			status := models.ListingStatus(v)
			filter.Status = &status
		}
	} else {
		filter.OnlyPurchasable = true
	}

	cars, total, err := h.carService.SearchCars(c.Request.Context(), filter)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(cars, total, params))
}

// GET /api/cars/featured
func (h *CarHandler) GetFeaturedCars(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "6"))

	cars, err := h.carService.GetFeaturedCars(c.Request.Context(), limit)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, cars)
}

// GET /api/cars/filters
func (h *CarHandler) GetFilterOptions(c *gin.Context) {
	options, err := h.carService.GetFilterOptions(c.Request.Context())
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, options)
}

// GET /api/cars/stats
func (h *CarHandler) GetStatistics(c *gin.Context) {
	stats, err := h.carService.GetStatistics(c.Request.Context())
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, stats)
}

// GET /api/cars/:id
func (h *CarHandler) GetCar(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid car ID", nil)
		return
	}

	// Admin reads do not inflate view counts.
	countView := !utils.IsAdminFromContext(c)

	car, err := h.carService.GetCar(c.Request.Context(), id, countView)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, car)
}

// POST /api/cars
func (h *CarHandler) CreateCar(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.CreateCarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	car, err := h.carService.CreateCar(c.Request.Context(), userID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, car)
}

// PUT /api/cars/:id
func (h *CarHandler) UpdateCar(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid car ID", nil)
		return
	}

	var req services.UpdateCarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	car, err := h.carService.UpdateCar(c.Request.Context(), id, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, car)
}

// PUT /api/cars/:id/availability
func (h *CarHandler) SetAvailability(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid car ID", nil)
		return
	}

	var req services.SetAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	car, err := h.carService.SetAvailability(c.Request.Context(), id, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, car)
}

// DELETE /api/cars/:id
func (h *CarHandler) DeleteCar(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid car ID", nil)
		return
	}

	car, err := h.carService.GetCar(c.Request.Context(), id, false)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	if err := h.carService.DeleteCar(c.Request.Context(), id, userID); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	// Remove the stored image once the listing is gone. Externally hosted
	// images map to no key and are left alone.
	if key := h.storageService.KeyFromURL(car.ImageURL); key != "" {
		if err := h.storageService.DeleteImage(key); err != nil {
			logrus.WithError(err).WithField("key", key).Warn("Failed to delete listing image")
		}
	}

	utils.SuccessResponse(c, gin.H{"message": "Car listing deleted successfully"})
}

// POST /api/cars/upload-image
func (h *CarHandler) UploadImage(c *gin.Context) {
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		utils.BadRequestResponse(c, "Image file is required", err.Error())
		return
	}
	defer file.Close()

	result, err := h.storageService.UploadImage(file, header, services.ListingImageOptions())
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.CreatedResponse(c, result)
}
