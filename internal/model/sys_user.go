package model

// SysUser 系统用户（商家老板/员工账号）
type SysUser struct {
	BaseModel
	Username string `gorm:"size:100;uniqueIndex;not null"`
	Password string `gorm:"size:255;not null"` // bcrypt 哈希
	Email    string `gorm:"size:100"`
	Phone    string `gorm:"size:32;comment:手机号(赞比亚 +260)"`

	// 系统级角色: admin (平台管理员), owner (商家老板), staff (员工)
	Role string `gorm:"size:20;default:'owner'"`

	IsActive bool `gorm:"default:true"`

	// 关联：一个用户可以是多个商家的成员
	Memberships []TeamMember `gorm:"foreignKey:SysUserID"`
}

func (SysUser) TableName() string {
	return "sys_users"
}

// TeamMember 用户与商家的关联关系及权限
// GORM 自定义连接表 (Join Table)
type TeamMember struct {
	BaseModel
	// 联合唯一索引：一个用户在一个商家里只有一条记录
	SysUserID  int64 `gorm:"index;uniqueIndex:idx_user_business;not null"`
	BusinessID int64 `gorm:"index;uniqueIndex:idx_user_business;not null"`

	// 商家内角色: owner, manager, editor, viewer
	Role string `gorm:"size:20;default:'viewer'"`

	SysUser  *SysUser  `gorm:"foreignKey:SysUserID"`
	Business *Business `gorm:"foreignKey:BusinessID"`
}

func (TeamMember) TableName() string {
	return "bizboost_team_members"
}
