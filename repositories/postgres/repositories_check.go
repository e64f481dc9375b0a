package postgres

import "campus-chat/repositories"

var (
	_ repositories.IConversationRepository = ConversationRepository{}
	_ repositories.IMessageRepository      = MessageRepository{}
	_ repositories.IUserRepository         = UserRepository{}
)
