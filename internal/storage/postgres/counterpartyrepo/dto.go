// Package counterpartyrepo is the Postgres mirror of recipient counterparties
// created on the carrier side.
package counterpartyrepo

import (
	"strings"
	"time"

	"github.com/tournevent/shipdoc/internal/shipment"
)

// contact person refs are stored as one comma separated column.
const refSeparator = ","

// CounterpartyDTO is the counterparties row. Rows are append-only.
type CounterpartyDTO struct {
	ID               int64 `gorm:"primaryKey;autoIncrement"`
	Ref              string
	FirstName        string `gorm:"index:counterparties_name_idx"`
	LastName         string `gorm:"index:counterparties_name_idx"`
	MiddleName       string
	Phone            string
	Email            string
	CounterpartyType string
	CityRef          string
	ContactPersons   string
	CreatedAt        time.Time
}

// TableName overrides GORM's default table name.
func (CounterpartyDTO) TableName() string {
	return "counterparties"
}

func fromDomain(agent *shipment.CounterAgent) CounterpartyDTO {
	return CounterpartyDTO{
		Ref:              agent.Ref,
		FirstName:        agent.FirstName,
		LastName:         agent.LastName,
		MiddleName:       agent.MiddleName,
		Phone:            agent.Phone,
		Email:            agent.Email,
		CounterpartyType: agent.CounterpartyType,
		CityRef:          agent.CityRef,
		ContactPersons:   strings.Join(agent.ContactPersons, refSeparator),
	}
}

func toDomain(dto CounterpartyDTO) shipment.CounterAgent {
	agent := shipment.CounterAgent{
		Ref:              dto.Ref,
		FirstName:        dto.FirstName,
		LastName:         dto.LastName,
		MiddleName:       dto.MiddleName,
		Phone:            dto.Phone,
		Email:            dto.Email,
		CounterpartyType: dto.CounterpartyType,
		CityRef:          dto.CityRef,
	}
	if dto.ContactPersons != "" {
		agent.ContactPersons = strings.Split(dto.ContactPersons, refSeparator)
	}
	return agent
}
