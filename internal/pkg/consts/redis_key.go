package consts

const (
	IMConversationKey = "im:conversation:"
	UserSimpleInfoKey = "user:simple:info:"
)
