package styleswap

import "time"

// SettingsId is the primary key of the singleton settings row.
const SettingsId = 1

type Settings struct {
	Id        uint              `json:"-" gorm:"primaryKey;autoIncrement:false"`
	Version   uint              `json:"version" gorm:"not null"`
	Affiliate AffiliateSettings `json:"affiliate" gorm:"embedded;embeddedPrefix:affiliate_"`
	UpdatedBy string            `json:"updated_by"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type AffiliateSettings struct {
	Enabled                     bool `json:"enabled" gorm:"not null"`
	DefaultCommissionPercentage int  `json:"default_commission_percentage" gorm:"not null"`
}

func DefaultSettings() Settings {
	return Settings{
		Id: SettingsId,
		Affiliate: AffiliateSettings{
			Enabled:                     false,
			DefaultCommissionPercentage: 10,
		},
	}
}

func (s AffiliateSettings) Validate() error {
	if s.DefaultCommissionPercentage < 0 || s.DefaultCommissionPercentage > 100 {
		return NewValidationError("default_commission_percentage", "Commission percentage must be between 0 and 100")
	}
	return nil
}
