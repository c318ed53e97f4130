package archive

// These structs mirror the JSON envelopes Twitter's export nests each
// record under. Fields the record model doesn't need are left
// unmarshalled (encoding/json ignores them).

type tweetEnvelope struct {
	Tweet tweetPayload `json:"tweet"`
}

type tweetPayload struct {
	IDStr             string `json:"id_str"`
	FullText          string `json:"full_text"`
	CreatedAt         string `json:"created_at"`
	InReplyToStatusID string `json:"in_reply_to_status_id_str"`
	RetweetedStatusID string `json:"retweeted_status_id_str"`
	FavoriteCount     string `json:"favorite_count"`
	RetweetCount      string `json:"retweet_count"`
	Lang              string `json:"lang"`
}

type likeEnvelope struct {
	Like likePayload `json:"like"`
}

type likePayload struct {
	TweetID     string `json:"tweetId"`
	FullText    string `json:"fullText"`
	ExpandedURL string `json:"expandedUrl"`
}

type dmEnvelope struct {
	DMConversation dmConversationPayload `json:"dmConversation"`
}

type dmConversationPayload struct {
	ConversationID string          `json:"conversationId"`
	Messages       []dmMessageItem `json:"messages"`
}

type dmMessageItem struct {
	MessageCreate *dmMessageCreate `json:"messageCreate"`
}

type dmMessageCreate struct {
	ID          string `json:"id"`
	SenderID    string `json:"senderId"`
	RecipientID string `json:"recipientId"`
	Text        string `json:"text"`
	CreatedAt   string `json:"createdAt"`
}

type grokEnvelope struct {
	GrokChatItem grokChatItemPayload `json:"grokChatItem"`
}

type grokChatItemPayload struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversationId"`
	Sender         string `json:"sender"`
	Message        string `json:"message"`
	CreatedAt      string `json:"createdAt"`
}
