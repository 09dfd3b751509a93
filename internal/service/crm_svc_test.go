package service

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"bizboost_v1_202608/internal/model"
	"bizboost_v1_202608/internal/realtime"
	"bizboost_v1_202608/internal/repository"
)

// ==================== 测试辅助函数 ====================

func newCRMEnv(t *testing.T) (*CRMService, *gorm.DB, *mockNotifier) {
	db := setupServiceTestDB(t)
	notifier := &mockNotifier{}
	svc := NewCRMService(
		repository.NewCustomerRepository(db),
		repository.NewProductRepository(db),
		repository.NewSaleRepository(db),
		notifier,
	)
	return svc, db, notifier
}

// ==================== 销售记录测试 ====================

func TestCRMService_RecordSale(t *testing.T) {
	svc, db, notifier := newCRMEnv(t)
	ctx := context.Background()

	customer := &model.Customer{BusinessID: 1, Name: "Bwalya", Phone: "+260971234567", IsActive: true}
	if err := db.Create(customer).Error; err != nil {
		t.Fatalf("写入客户失败: %v", err)
	}

	sale := &model.Sale{
		BusinessID: 1,
		CustomerID: &customer.ID,
		Amount:     25000,
		Channel:    "whatsapp",
	}
	if err := svc.RecordSale(ctx, sale); err != nil {
		t.Fatalf("RecordSale() error = %v", err)
	}
	// 未填成交时间时补当前时间
	if sale.SoldAt.IsZero() {
		t.Error("SoldAt 未补齐")
	}

	// 客户最近购买时间顺手更新
	var got model.Customer
	db.First(&got, customer.ID)
	if got.LastPurchaseAt == nil {
		t.Error("LastPurchaseAt 未更新")
	}

	events := notifier.Events()
	if len(events) != 1 || events[0] != realtime.EventSaleCreated {
		t.Errorf("推送事件 = %v, want [%s]", events, realtime.EventSaleCreated)
	}
}

func TestCRMService_Summary(t *testing.T) {
	svc, db, _ := newCRMEnv(t)
	ctx := context.Background()

	sales := []model.Sale{
		{BusinessID: 1, Amount: 10000, Channel: "social", SoldAt: time.Now().AddDate(0, 0, -2)},
		{BusinessID: 1, Amount: 5000, Channel: "walk_in", SoldAt: time.Now().AddDate(0, 0, -5)},
		// 30 天之前的不计入
		{BusinessID: 1, Amount: 99999, Channel: "social", SoldAt: time.Now().AddDate(0, 0, -45)},
		// 别家的不计入
		{BusinessID: 2, Amount: 77777, Channel: "social", SoldAt: time.Now()},
	}
	for i := range sales {
		if err := db.Create(&sales[i]).Error; err != nil {
			t.Fatalf("写入销售记录失败: %v", err)
		}
	}

	summary, err := svc.Summary(ctx, 1)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if summary.TotalAmount != 15000 {
		t.Errorf("TotalAmount = %d, want 15000", summary.TotalAmount)
	}
	if summary.SocialCount != 1 {
		t.Errorf("SocialCount = %d, want 1", summary.SocialCount)
	}
}

// ==================== 商品测试 ====================

func TestCRMService_Product_PriceInCents(t *testing.T) {
	svc, _, _ := newCRMEnv(t)
	ctx := context.Background()

	product := &model.Product{BusinessID: 1, Name: "Chitenge 布料", IsActive: true}
	product.SetPrice(149.50)
	if err := svc.CreateProduct(ctx, product); err != nil {
		t.Fatalf("CreateProduct() error = %v", err)
	}

	// 价格以分落库，读取时还原
	if product.PriceAmount != 14950 {
		t.Errorf("PriceAmount = %d, want 14950", product.PriceAmount)
	}
	if product.GetPrice() != 149.50 {
		t.Errorf("GetPrice() = %v, want 149.5", product.GetPrice())
	}
}

func TestCRMService_Customer_TenantIsolation(t *testing.T) {
	svc, db, _ := newCRMEnv(t)
	ctx := context.Background()

	customer := &model.Customer{BusinessID: 1, Name: "Mutale", IsActive: true}
	if err := db.Create(customer).Error; err != nil {
		t.Fatalf("写入客户失败: %v", err)
	}

	if err := svc.DeleteCustomer(ctx, 99, customer.ID); err == nil {
		t.Error("跨商家删除应失败")
	}
	if err := svc.DeleteCustomer(ctx, 1, customer.ID); err != nil {
		t.Errorf("本商家删除失败: %v", err)
	}
}
