package model

// ClientStats backs the client dashboard cards.
type ClientStats struct {
	ActiveLists  int     `json:"activeLists"`
	Points       int     `json:"points"`
	MonthEconomy float64 `json:"monthEconomy"`
	Reputation   float64 `json:"reputation"`
}

type CompanyUpload struct {
	ID        int64  `json:"id"`
	Filename  string `json:"filename"`
	Products  int    `json:"products"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type CompanyStats struct {
	TotalProducts  int             `json:"totalProducts"`
	ActiveWebhooks int             `json:"activeWebhooks"`
	MonthlyUpdates int             `json:"monthlyUpdates"`
	UserEngagement float64         `json:"userEngagement"`
	RecentUploads  []CompanyUpload `json:"recentUploads"`
}

type SystemStats struct {
	TotalUsers     int     `json:"totalUsers"`
	TotalCompanies int     `json:"totalCompanies"`
	TotalProducts  int     `json:"totalProducts"`
	SystemHealth   float64 `json:"systemHealth"`
}

type TopUser struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Points     int     `json:"points"`
	Reputation float64 `json:"reputation"`
}

type TopProduct struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Registrations int    `json:"registrations"`
}

type TopStore struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Mentions int    `json:"mentions"`
}

type AdminStats struct {
	System      SystemStats  `json:"systemStats"`
	TopUsers    []TopUser    `json:"topUsers"`
	TopProducts []TopProduct `json:"topProducts"`
	TopStores   []TopStore   `json:"topStores"`
}
