package types

// Enum for user roles
type UserRole string

func (r UserRole) String() string {
	return string(r)
}

const (
	RoleAdmin  UserRole = "admin"
	RoleDriver UserRole = "driver"
	RoleParent UserRole = "parent"
)

func (r UserRole) IsValid() bool {
	switch r {
	case RoleAdmin, RoleDriver, RoleParent:
		return true
	}
	return false
}

// Enum for notification categories
type NotificationType string

func (t NotificationType) String() string {
	return string(t)
}

const (
	NotificationInfo    NotificationType = "info"
	NotificationWarning NotificationType = "warning"
	NotificationAlert   NotificationType = "alert"
	NotificationSuccess NotificationType = "success"
)

func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationInfo, NotificationWarning, NotificationAlert, NotificationSuccess:
		return true
	}
	return false
}
