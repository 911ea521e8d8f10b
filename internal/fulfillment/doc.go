/*
Package fulfillment answers Dialogflow ES fulfillment requests forwarded by
the gateway.

Requests are decoded into Dialogflow v2 webhook types and dispatched by intent
display name to an ActionFunc registered in Actions. Each action returns the
webhook response sent back to Dialogflow. Intents without an action receive a
fallback text.
*/
package fulfillment
