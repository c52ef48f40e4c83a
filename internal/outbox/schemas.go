package outbox

const startSnapChangedSchema = `{
  "type": "object",
  "title": "StartSnapChanged",
  "properties": {
    "startsnap_id": {"type": "string"},
    "user_id": {"type": "string"},
    "name": {"type": "string"},
    "category": {"type": "string"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["startsnap_id", "user_id", "name", "category", "occurred_at"],
  "additionalProperties": false
}`

const vibeLogPostedSchema = `{
  "type": "object",
  "title": "VibeLogPosted",
  "properties": {
    "vibelog_id": {"type": "string"},
    "startsnap_id": {"type": "string"},
    "user_id": {"type": "string"},
    "log_type": {"type": "string"},
    "title": {"type": "string"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["vibelog_id", "startsnap_id", "user_id", "log_type", "title", "occurred_at"],
  "additionalProperties": false
}`

const feedbackPostedSchema = `{
  "type": "object",
  "title": "FeedbackPosted",
  "properties": {
    "feedback_id": {"type": "string"},
    "startsnap_id": {"type": "string"},
    "user_id": {"type": "string"},
    "creator_id": {"type": "string"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["feedback_id", "startsnap_id", "user_id", "creator_id", "occurred_at"],
  "additionalProperties": false
}`

const supportToggledSchema = `{
  "type": "object",
  "title": "SupportToggled",
  "properties": {
    "startsnap_id": {"type": "string"},
    "user_id": {"type": "string"},
    "creator_id": {"type": "string"},
    "supported": {"type": "boolean"},
    "support_count": {"type": "integer"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["startsnap_id", "user_id", "creator_id", "supported", "support_count", "occurred_at"],
  "additionalProperties": false
}`

const tipConfirmedSchema = `{
  "type": "object",
  "title": "TipConfirmed",
  "properties": {
    "tip_id": {"type": "string"},
    "startsnap_id": {"type": "string"},
    "sender_user_id": {"type": "string"},
    "recipient_user_id": {"type": "string"},
    "sender_address": {"type": "string"},
    "recipient_address": {"type": "string"},
    "currency": {"type": "string", "enum": ["ALGO", "USDC"]},
    "amount": {"type": "integer", "minimum": 1},
    "tx_id": {"type": "string"},
    "confirmed_round": {"type": "integer"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["tip_id", "sender_user_id", "recipient_user_id", "currency", "amount", "tx_id", "confirmed_round", "occurred_at"],
  "additionalProperties": false
}`

const profileUpdatedSchema = `{
  "type": "object",
  "title": "ProfileUpdated",
  "properties": {
    "user_id": {"type": "string"},
    "username": {"type": "string"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["user_id", "username", "occurred_at"],
  "additionalProperties": false
}`

const walletChangedSchema = `{
  "type": "object",
  "title": "WalletChanged",
  "properties": {
    "user_id": {"type": "string"},
    "connected": {"type": "boolean"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["user_id", "connected", "occurred_at"],
  "additionalProperties": false
}`
