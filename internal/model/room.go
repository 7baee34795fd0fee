package model

// Room 诊室表 — 对应 rooms
type Room struct {
	RoomID      string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"room_id"`
	Name        string `gorm:"type:varchar(100);not null"                     json:"name"`
	Description string `gorm:"type:varchar(255)"                              json:"description,omitempty"`
	IsActive    bool   `gorm:"not null;default:true"                          json:"is_active"`
	VersionedModel
}

// TableName 指定表名
func (Room) TableName() string { return "rooms" }
