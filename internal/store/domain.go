// Package store defines the persistence port: the entity shapes every
// repository reads and writes, and the Store interface itself. The
// concrete implementation lives in internal/store/sqlite; callers outside
// that package depend only on the interfaces here.
package store

import "time"

// StockType distinguishes a bar stock item from a sheet stock item.
type StockType string

const (
	StockTypeBar1D   StockType = "BAR_1D"
	StockTypeSheet2D StockType = "SHEET_2D"
)

// CuttingJobStatus is the CuttingJob lifecycle state.
type CuttingJobStatus string

const (
	JobPending      CuttingJobStatus = "PENDING"
	JobOptimizing   CuttingJobStatus = "OPTIMIZING"
	JobOptimized    CuttingJobStatus = "OPTIMIZED"
	JobInProduction CuttingJobStatus = "IN_PRODUCTION"
	JobCompleted    CuttingJobStatus = "COMPLETED"
	JobFailed       CuttingJobStatus = "FAILED"
)

// CuttingPlanStatus is the CuttingPlan lifecycle state.
type CuttingPlanStatus string

const (
	PlanDraft    CuttingPlanStatus = "DRAFT"
	PlanApproved CuttingPlanStatus = "APPROVED"
	PlanRejected CuttingPlanStatus = "REJECTED"
)

// GeometryType is the shape an OrderItem describes.
type GeometryType string

const (
	GeometryBar    GeometryType = "BAR"
	GeometrySheet  GeometryType = "SHEET"
	GeometryCircle GeometryType = "CIRCLE"
)

// ProductionLogStatus tracks a single operator's run against a plan.
type ProductionLogStatus string

const (
	ProductionStarted   ProductionLogStatus = "STARTED"
	ProductionPaused    ProductionLogStatus = "PAUSED"
	ProductionCompleted ProductionLogStatus = "COMPLETED"
	ProductionFailed    ProductionLogStatus = "FAILED"
)

type Tenant struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

type User struct {
	ID           string
	TenantID     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	RoleID       string
	IsActive     bool
}

type StockItem struct {
	ID             string
	TenantID       string
	Code           string
	Name           string
	MaterialTypeID string
	Thickness      float64
	StockType      StockType
	Length         *int // mm, BAR_1D
	Width          *int // mm, SHEET_2D
	Height         *int // mm, SHEET_2D
	Quantity       int
	ReservedQty    int
	UnitPriceCents *int64
	IsFromWaste    bool
	LocationID     *string
}

// AvailableQty is Quantity minus ReservedQty, the amount a new plan may draw on.
func (s StockItem) AvailableQty() int {
	if n := s.Quantity - s.ReservedQty; n > 0 {
		return n
	}
	return 0
}

type Order struct {
	ID          string
	TenantID    string
	OrderNumber string
	CustomerID  *string
	Status      string
	CreatedBy   string
	CreatedAt   time.Time
}

type OrderItem struct {
	ID             string
	OrderID        string
	ItemCode       *string
	GeometryType   GeometryType
	Length         *int
	Width          *int
	Height         *int
	Diameter       *int
	MaterialTypeID string
	Thickness      float64
	Quantity       int
	CanRotate      bool
}

type CuttingJob struct {
	ID             string
	TenantID       string
	JobNumber      string
	MaterialTypeID string
	Thickness      float64
	Status         CuttingJobStatus
}

type CuttingJobItem struct {
	ID           string
	CuttingJobID string
	OrderItemID  string
	Quantity     int
}

type OptimizationScenario struct {
	ID            string
	JobID         string
	Name          string
	Algorithm     string
	KerfMM        int
	AllowRotation bool
	Status        string
	ParametersJSON string
}

type CuttingPlan struct {
	ID              string
	ScenarioID      string
	PlanNumber      string
	TotalWasteMM    int64
	WastePercentage float64
	StockUsedCount  int
	Efficiency      float64
	Status          CuttingPlanStatus
	ApprovedBy      *string
	ApprovedAt      *time.Time
}

type CuttingPlanStock struct {
	ID              string
	PlanID          string
	StockItemID     string
	Sequence        int
	PlacementsJSON  string
	WasteMM         int64
	WastePercentage float64
}

type ProductionLog struct {
	ID            string
	CuttingPlanID string
	OperatorID    string
	Status        ProductionLogStatus
	ActualTimeSec *int
	ActualWasteMM *int64
	StartedAt     time.Time
	CompletedAt   *time.Time
}

type DocumentLock struct {
	ID           string
	TenantID     string
	DocumentType string
	DocumentID   string
	UserID       string
	AcquiredAt   time.Time
	ExpiresAt    time.Time
}

type NotificationPreference struct {
	ID              string
	TenantID        string
	UserID          string
	EventType       string
	EnabledChannels []string
}

type NotificationStatus string

const (
	NotificationSent    NotificationStatus = "SENT"
	NotificationFailed  NotificationStatus = "FAILED"
	NotificationSkipped NotificationStatus = "SKIPPED"
)

type Notification struct {
	ID          string
	TenantID    string
	UserID      string
	EventType   string
	Channel     string
	Status      NotificationStatus
	ExternalID  string
	Error       string
	PayloadJSON string
	SentAt      *time.Time
	CreatedAt   time.Time
}

type ActivityEntry struct {
	ID           string
	TenantID     string
	ActorID      string
	Verb         string
	EntityType   string
	EntityID     string
	Metadata     map[string]any
	CreatedAt    time.Time
}

type ActivityRead struct {
	ActivityID string
	UserID     string
	ReadAt     time.Time
}

type AuditEntry struct {
	ID         string
	TenantID   string
	UserID     string
	Action     string
	Module     string
	EntityType string
	EntityID   string
	Before     map[string]any
	After      map[string]any
	CreatedAt  time.Time
}
