package handler

// Export for testing
type AuthStatusResponse = authStatusResponse
type AuthResponseDTO = authResponse
type UserResponse = userResponse
type SubmitResponse = submitResponse
type RejectionResponse = rejectionResponse
type FormStateResponse = formStateResponse
type SubmissionPageResponse = submissionPageResponse
type SubmissionDetailResponse = submissionDetailResponse
type VerificationResponse = verificationResponse
type CatalogResponse = catalogResponse
type TemplateResponse = templateResponse
type TemplateValidationResponse = templateValidationResponse
type RuleResponse = ruleResponse
type NotificationResponse = notificationResponse
type SecurityEventResponse = securityEventResponse
type OutboxEmailResponse = outboxEmailResponse
type MessageResponse = messageResponse
type ErrorResponse = errorResponse

var WriteServiceError = writeServiceError
var IDPtrToString = idPtrToString
var Itoa = itoa
var UsableIP = usableIP
