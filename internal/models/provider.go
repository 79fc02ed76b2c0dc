package models

// Provider профиль исполнителя, как его отдает бэкенд.
type Provider struct {
	ID                     int64            `json:"id"`
	FullName               string           `json:"full_name"`
	TechnicalQualification string           `json:"technical_qualification"`
	ServiceAddress         string           `json:"service_address"`
	ProfilePhoto           string           `json:"profile_photo,omitempty"`
	Email                  string           `json:"email,omitempty"`
	ProfessionalEmail      string           `json:"professional_email,omitempty"`
	Phone                  string           `json:"phone,omitempty"`
	AverageRating          *float64         `json:"average_rating,omitempty"`
	TotalReviews           int              `json:"total_reviews"`
	PortfolioPhotos        []PortfolioPhoto `json:"portfolio_photos,omitempty"`
	Reviews                []Review         `json:"reviews,omitempty"`
	CertificationsURLs     []string         `json:"certifications_urls,omitempty"`
}

// Rating средняя оценка, 0 если отзывов нет.
func (p *Provider) Rating() float64 {
	if p.AverageRating == nil {
		return 0
	}
	return *p.AverageRating
}

// PortfolioPhoto фотография из портфолио исполнителя.
type PortfolioPhoto struct {
	ID          int64  `json:"id"`
	Photo       string `json:"photo"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// Review отзыв клиента об исполнителе.
type Review struct {
	ID               int64  `json:"id"`
	ClientRating     int    `json:"client_rating"`
	ClientComment    string `json:"client_comment,omitempty"`
	ClientName       string `json:"client_name,omitempty"`
	ClientReviewedAt string `json:"client_reviewed_at,omitempty"`
	ClientPhoto      string `json:"client_photo,omitempty"`
}

// ReviewSummary сводка отзывов для кабинета исполнителя.
type ReviewSummary struct {
	Reviews []Review `json:"reviews"`
	Average float64  `json:"average"`
	Count   int      `json:"count"`
}

// SummarizeReviews считает среднюю оценку по отзывам.
func SummarizeReviews(reviews []Review) ReviewSummary {
	s := ReviewSummary{Reviews: reviews, Count: len(reviews)}
	if s.Reviews == nil {
		s.Reviews = []Review{}
	}
	if len(reviews) == 0 {
		return s
	}
	total := 0
	for _, r := range reviews {
		total += r.ClientRating
	}
	s.Average = float64(total) / float64(len(reviews))
	return s
}

// ClientProfile профиль клиента.
type ClientProfile struct {
	ID           int64  `json:"id"`
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone,omitempty"`
	Address      string `json:"address,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	CPF          string `json:"cpf,omitempty"`
	ProfilePhoto string `json:"profile_photo,omitempty"`
}
