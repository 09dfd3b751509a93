package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bizboost_v1_202608/internal/api/dto"
	"bizboost_v1_202608/internal/middleware"
	"bizboost_v1_202608/internal/model"
	"bizboost_v1_202608/internal/service"
)

// ==================== 控制器 ====================

// CRMController 客户/商品/销售控制器
type CRMController struct {
	crmService *service.CRMService
}

func NewCRMController(s *service.CRMService) *CRMController {
	return &CRMController{crmService: s}
}

// ==================== 客户 ====================

// CreateCustomer
// @Summary 创建客户
// @Tags CRM (客户模块)
// @Accept json
// @Produce json
// @Param body body dto.CustomerReq true "客户信息"
// @Success 201 {object} model.Customer
// @Router /api/businesses/{businessID}/customers [post]
func (ctrl *CRMController) CreateCustomer(c *gin.Context) {
	var req dto.CustomerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	customer := &model.Customer{
		BusinessID: middleware.GetBusinessID(c),
		Name:       req.Name,
		Phone:      req.Phone,
		Email:      req.Email,
		Tags:       model.StringSlice(req.Tags),
		Note:       req.Note,
		IsActive:   true,
	}
	if err := ctrl.crmService.CreateCustomer(c.Request.Context(), customer); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, customer)
}

// ListCustomers
// @Summary 客户列表
// @Tags CRM (客户模块)
// @Produce json
// @Param keyword query string false "按姓名/电话搜索"
// @Success 200 {object} dto.ListResp
// @Router /api/businesses/{businessID}/customers [get]
func (ctrl *CRMController) ListCustomers(c *gin.Context) {
	var req dto.CustomerListReq
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	customers, total, err := ctrl.crmService.ListCustomers(
		c.Request.Context(), middleware.GetBusinessID(c), req.Keyword, req.Page, req.PageSize)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListResp{Total: total, Items: customers})
}

// UpdateCustomer
// @Summary 编辑客户
// @Tags CRM (客户模块)
// @Accept json
// @Produce json
// @Param id path int true "客户ID"
// @Param body body dto.CustomerReq true "客户信息"
// @Success 200 {object} model.Customer
// @Router /api/businesses/{businessID}/customers/{id} [put]
func (ctrl *CRMController) UpdateCustomer(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.CustomerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	customer, err := ctrl.crmService.UpdateCustomer(c.Request.Context(), middleware.GetBusinessID(c), id, &model.Customer{
		Name:  req.Name,
		Phone: req.Phone,
		Email: req.Email,
		Tags:  model.StringSlice(req.Tags),
		Note:  req.Note,
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, customer)
}

// DeleteCustomer
// @Summary 删除客户
// @Tags CRM (客户模块)
// @Produce json
// @Param id path int true "客户ID"
// @Success 200 {object} map[string]string
// @Router /api/businesses/{businessID}/customers/{id} [delete]
func (ctrl *CRMController) DeleteCustomer(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := ctrl.crmService.DeleteCustomer(c.Request.Context(), middleware.GetBusinessID(c), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "删除成功"})
}

// ==================== 商品 ====================

// CreateProduct
// @Summary 创建商品
// @Tags CRM (商品模块)
// @Accept json
// @Produce json
// @Param body body dto.ProductReq true "商品信息"
// @Success 201 {object} model.Product
// @Router /api/businesses/{businessID}/products [post]
func (ctrl *CRMController) CreateProduct(c *gin.Context) {
	var req dto.ProductReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	product := &model.Product{
		BusinessID:  middleware.GetBusinessID(c),
		Name:        req.Name,
		Description: req.Description,
		StockCount:  req.StockCount,
		ImageURL:    req.ImageURL,
		IsActive:    true,
	}
	product.SetPrice(req.Price)

	if err := ctrl.crmService.CreateProduct(c.Request.Context(), product); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, product)
}

// ListProducts
// @Summary 商品列表
// @Tags CRM (商品模块)
// @Produce json
// @Success 200 {object} dto.ListResp
// @Router /api/businesses/{businessID}/products [get]
func (ctrl *CRMController) ListProducts(c *gin.Context) {
	var req dto.CustomerListReq
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	products, total, err := ctrl.crmService.ListProducts(
		c.Request.Context(), middleware.GetBusinessID(c), req.Page, req.PageSize)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListResp{Total: total, Items: products})
}

// UpdateProduct
// @Summary 编辑商品
// @Tags CRM (商品模块)
// @Accept json
// @Produce json
// @Param id path int true "商品ID"
// @Param body body dto.ProductReq true "商品信息"
// @Success 200 {object} model.Product
// @Router /api/businesses/{businessID}/products/{id} [put]
func (ctrl *CRMController) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.ProductReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	update := &model.Product{
		Name:        req.Name,
		Description: req.Description,
		StockCount:  req.StockCount,
		ImageURL:    req.ImageURL,
	}
	update.SetPrice(req.Price)

	product, err := ctrl.crmService.UpdateProduct(c.Request.Context(), middleware.GetBusinessID(c), id, update)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// DeleteProduct
// @Summary 删除商品
// @Tags CRM (商品模块)
// @Produce json
// @Param id path int true "商品ID"
// @Success 200 {object} map[string]string
// @Router /api/businesses/{businessID}/products/{id} [delete]
func (ctrl *CRMController) DeleteProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := ctrl.crmService.DeleteProduct(c.Request.Context(), middleware.GetBusinessID(c), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "删除成功"})
}

// ==================== 销售 ====================

// RecordSale
// @Summary 记录一笔销售
// @Tags CRM (销售模块)
// @Accept json
// @Produce json
// @Param body body dto.SaleReq true "销售信息"
// @Success 201 {object} model.Sale
// @Router /api/businesses/{businessID}/sales [post]
func (ctrl *CRMController) RecordSale(c *gin.Context) {
	var req dto.SaleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	sale := &model.Sale{
		BusinessID: middleware.GetBusinessID(c),
		CustomerID: req.CustomerID,
		ProductID:  req.ProductID,
		Amount:     int64(req.Amount * 100),
		Quantity:   req.Quantity,
		Channel:    req.Channel,
		Note:       req.Note,
	}
	if req.SoldAt != nil {
		sale.SoldAt = *req.SoldAt
	}

	if err := ctrl.crmService.RecordSale(c.Request.Context(), sale); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, sale)
}

// ListSales
// @Summary 销售记录列表
// @Tags CRM (销售模块)
// @Produce json
// @Param from query string false "起始日期 2006-01-02"
// @Param to query string false "结束日期 2006-01-02"
// @Success 200 {object} dto.ListResp
// @Router /api/businesses/{businessID}/sales [get]
func (ctrl *CRMController) ListSales(c *gin.Context) {
	var req dto.SaleListReq
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	var from, to time.Time
	if req.From != nil {
		from = *req.From
	}
	if req.To != nil {
		to = *req.To
	}

	sales, total, err := ctrl.crmService.ListSales(
		c.Request.Context(), middleware.GetBusinessID(c), from, to, req.Page, req.PageSize)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListResp{Total: total, Items: sales})
}

// SalesSummary
// @Summary 近30天销售统计
// @Tags CRM (销售模块)
// @Produce json
// @Success 200 {object} service.SalesSummary
// @Router /api/businesses/{businessID}/sales/summary [get]
func (ctrl *CRMController) SalesSummary(c *gin.Context) {
	summary, err := ctrl.crmService.Summary(c.Request.Context(), middleware.GetBusinessID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
